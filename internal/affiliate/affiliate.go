// Package affiliate builds Amazon affiliate search links for products
// mentioned in a script and injects them into video descriptions.
package affiliate

import (
	"fmt"
	"net/url"
	"strings"
)

const searchBaseURL = "https://www.amazon.com/s"

// LinkBuilder produces tagged Amazon search URLs. An empty tag disables
// link generation entirely, which keeps descriptions clean for channels
// without an affiliate account.
type LinkBuilder struct {
	tag string
}

// NewLinkBuilder creates a builder using the given Amazon Associates tag.
func NewLinkBuilder(tag string) *LinkBuilder {
	return &LinkBuilder{tag: tag}
}

// Enabled reports whether an affiliate tag is configured.
func (b *LinkBuilder) Enabled() bool {
	return b.tag != ""
}

// SearchURL returns an Amazon search link for product, carrying the
// affiliate tag. Returns "" when the builder is disabled or the product
// name is blank.
func (b *LinkBuilder) SearchURL(product string) string {
	product = strings.TrimSpace(product)
	if !b.Enabled() || product == "" {
		return ""
	}

	params := url.Values{}
	params.Set("k", product)
	params.Set("tag", b.tag)
	return searchBaseURL + "?" + params.Encode()
}

// InjectLinks appends a product-link section to a video description. The
// description is returned unchanged when the builder is disabled or no
// products yield links.
func (b *LinkBuilder) InjectLinks(description string, products []string) string {
	if !b.Enabled() {
		return description
	}

	var lines []string
	for _, product := range products {
		link := b.SearchURL(product)
		if link == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", strings.TrimSpace(product), link))
	}
	if len(lines) == 0 {
		return description
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(description, "\n"))
	sb.WriteString("\n\nProducts mentioned:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\nAs an Amazon Associate I earn from qualifying purchases.")
	return sb.String()
}
