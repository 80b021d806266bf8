package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/tdhoang/marketplace-notify/internal/api/storage"
)

func DecodePurchaseCursor(cursorStr string) (*storage.PurchaseCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.PurchaseCursor{
		CreatedAt:  time.Unix(0, createdAt),
		PurchaseID: decodedParts[1],
	}, nil
}

func EncodePurchaseCursor(cursor *storage.PurchaseCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.PurchaseID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
