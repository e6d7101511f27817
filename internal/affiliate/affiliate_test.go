package affiliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchURL(t *testing.T) {
	b := NewLinkBuilder("mychannel-20")

	url := b.SearchURL("monitor light bar")
	assert.Equal(t, "https://www.amazon.com/s?k=monitor+light+bar&tag=mychannel-20", url)
}

func TestSearchURLDisabled(t *testing.T) {
	b := NewLinkBuilder("")

	assert.False(t, b.Enabled())
	assert.Empty(t, b.SearchURL("monitor light bar"))
}

func TestSearchURLBlankProduct(t *testing.T) {
	b := NewLinkBuilder("mychannel-20")

	assert.Empty(t, b.SearchURL("   "))
}

func TestInjectLinks(t *testing.T) {
	b := NewLinkBuilder("mychannel-20")

	got := b.InjectLinks("A quick tour of desk gadgets.", []string{"USB hub", ""})

	assert.Contains(t, got, "A quick tour of desk gadgets.")
	assert.Contains(t, got, "Products mentioned:")
	assert.Contains(t, got, "USB hub: https://www.amazon.com/s?k=USB+hub&tag=mychannel-20")
	assert.Contains(t, got, "Amazon Associate")
}

func TestInjectLinksNoProducts(t *testing.T) {
	b := NewLinkBuilder("mychannel-20")

	desc := "A quick tour of desk gadgets."
	assert.Equal(t, desc, b.InjectLinks(desc, nil))
	assert.Equal(t, desc, b.InjectLinks(desc, []string{"  "}))
}

func TestInjectLinksDisabled(t *testing.T) {
	b := NewLinkBuilder("")

	desc := "A quick tour of desk gadgets."
	assert.Equal(t, desc, b.InjectLinks(desc, []string{"USB hub"}))
}
