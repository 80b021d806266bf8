package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPurchase(t *testing.T) {
	job := &Job{
		Kind:       KindPurchase,
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Alice",
		OwnerEmail: "owner@example.com",
		OwnerName:  "Bob",
		Items: []LineItem{
			{Name: "Mechanical Keyboard", Quantity: 2, Price: 89.99},
			{Name: "Desk Mat", Quantity: 1, Price: 25.5},
		},
		TotalPrice: 205.48,
	}

	rendered, err := Render(job)
	require.NoError(t, err)

	assert.Equal(t, "Your order is confirmed", rendered.BuyerSubject)
	assert.Equal(t, "You sold an item", rendered.OwnerSubject)

	for _, html := range []string{rendered.BuyerHTML, rendered.OwnerHTML} {
		assert.Equal(t, 1, strings.Count(html, "Mechanical Keyboard"))
		assert.Equal(t, 1, strings.Count(html, "Desk Mat"))
		assert.Contains(t, html, "89.99")
		assert.Contains(t, html, "25.50")
		assert.Contains(t, html, "205.48")
	}

	assert.Contains(t, rendered.BuyerHTML, "Alice")
	assert.Contains(t, rendered.OwnerHTML, "buyer@example.com")
}

func TestRenderCancel(t *testing.T) {
	job := &Job{
		Kind:       KindCancel,
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Alice",
		OwnerEmail: "owner@example.com",
		OwnerName:  "Bob",
		Items:      []LineItem{{Name: "Desk Mat", Quantity: 1, Price: 25.5}},
		TotalPrice: 25.5,
	}

	rendered, err := Render(job)
	require.NoError(t, err)

	assert.Equal(t, "Your order has been cancelled", rendered.BuyerSubject)
	assert.Equal(t, "An order was cancelled", rendered.OwnerSubject)
	assert.Contains(t, rendered.BuyerHTML, "cancelled")
	assert.Contains(t, rendered.OwnerHTML, "cancelled")
	assert.NotContains(t, rendered.BuyerHTML, "Thanks for your order")
}

func TestRenderMoneyFormatting(t *testing.T) {
	job := &Job{
		Kind:       KindPurchase,
		BuyerEmail: "buyer@example.com",
		OwnerEmail: "owner@example.com",
		Items:      []LineItem{{Name: "Rare Lamp", Quantity: 1, Price: 7055}},
		TotalPrice: 7055,
	}

	rendered, err := Render(job)
	require.NoError(t, err)

	assert.Contains(t, rendered.BuyerHTML, "7055.00")
	assert.NotContains(t, rendered.BuyerHTML, "7055.000")
}

func TestRenderIsDeterministic(t *testing.T) {
	job := &Job{
		Kind:       KindCancel,
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Alice",
		OwnerEmail: "owner@example.com",
		OwnerName:  "Bob",
		Items:      []LineItem{{Name: "Desk Mat", Quantity: 3, Price: 25.5}},
		TotalPrice: 76.5,
	}

	first, err := Render(job)
	require.NoError(t, err)

	second, err := Render(job)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderEscapesHTMLInNames(t *testing.T) {
	job := &Job{
		Kind:       KindPurchase,
		BuyerEmail: "buyer@example.com",
		BuyerName:  "<script>alert(1)</script>",
		OwnerEmail: "owner@example.com",
		Items:      []LineItem{{Name: "Widget", Quantity: 1, Price: 1}},
		TotalPrice: 1,
	}

	rendered, err := Render(job)
	require.NoError(t, err)

	assert.NotContains(t, rendered.BuyerHTML, "<script>")
}

func TestRenderEmptyItemsYieldsEmptyTable(t *testing.T) {
	// Render itself does not validate; an empty slice must produce an empty
	// table body rather than an error.
	job := &Job{
		Kind:       KindPurchase,
		BuyerEmail: "buyer@example.com",
		OwnerEmail: "owner@example.com",
		Items:      nil,
		TotalPrice: 0,
	}

	rendered, err := Render(job)
	require.NoError(t, err)
	assert.Contains(t, rendered.BuyerHTML, "<table")
	assert.Equal(t, 1, strings.Count(rendered.BuyerHTML, "<tr>"))
}

func TestRenderUnknownKind(t *testing.T) {
	job := &Job{
		Kind:       Kind("refund"),
		BuyerEmail: "buyer@example.com",
		OwnerEmail: "owner@example.com",
		Items:      []LineItem{{Name: "Widget", Quantity: 1, Price: 1}},
		TotalPrice: 1,
	}

	_, err := Render(job)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownJobKind)
}
