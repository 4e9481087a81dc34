package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/clothhaven/storefront/internal/templates/helpers"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.3"

// Page renders the inventory console document.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		headers, err := json.Marshal(map[string]string{"X-CSRF-Token": data.CSRFToken})
		if err != nil {
			return err
		}
		title := data.Title
		if title == "" {
			title = "Inventory"
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		fmt.Fprintf(&b, `<title>%s</title>`, esc(title))
		fmt.Fprintf(&b, `<script src="%s" defer></script></head>`, htmxScript)
		fmt.Fprintf(&b, `<body class="bg-slate-50 text-slate-900" hx-headers="%s">`, esc(string(headers)))
		fmt.Fprintf(&b, `<main class="mx-auto max-w-6xl space-y-6 p-6"><h1 class="text-2xl font-semibold">%s</h1>`, esc(title))

		tableURL := helpers.JoinPath(data.BasePath, "/inventory/table")
		target := "#" + TargetID
		fmt.Fprintf(&b, `<form id="inventory-filter" hx-get="%s" hx-target="%s" hx-swap="outerHTML">`, esc(tableURL), target)
		fmt.Fprintf(&b, `<label>Product <input type="number" name="product" min="1" value="%s"></label>`, esc(data.Table.Filter))
		b.WriteString(`<button type="submit">Filter</button></form>`)

		createURL := helpers.JoinPath(data.BasePath, "/inventory")
		fmt.Fprintf(&b, `<form id="inventory-create" hx-post="%s" hx-target="%s" hx-swap="outerHTML">`, esc(createURL), target)
		fmt.Fprintf(&b, `<input type="hidden" name="csrf_token" value="%s">`, esc(data.CSRFToken))
		b.WriteString(`<input type="number" name="productId" placeholder="Product ID" required>`)
		b.WriteString(`<input type="text" name="color" placeholder="Color">`)
		b.WriteString(`<input type="text" name="size" placeholder="Size">`)
		b.WriteString(`<input type="number" name="quantity" min="0" value="0">`)
		b.WriteString(`<select name="availability"><option value="true" selected>Available</option><option value="false">Unavailable</option></select>`)
		b.WriteString(`<button type="submit">Add variant</button></form>`)

		batchURL := helpers.JoinPath(data.BasePath, "/inventory/batch")
		fmt.Fprintf(&b, `<form id="inventory-batch" hx-post="%s" hx-target="%s" hx-swap="outerHTML">`, esc(batchURL), target)
		fmt.Fprintf(&b, `<input type="hidden" name="csrf_token" value="%s">`, esc(data.CSRFToken))
		b.WriteString(`<textarea name="payload" rows="6" placeholder="[{&#34;productId&#34;: 1, &#34;color&#34;: &#34;Navy&#34;, &#34;size&#34;: &#34;M&#34;}]"></textarea>`)
		b.WriteString(`<button type="submit">Create batch</button></form>`)

		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := Table(data.Table).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// Table renders the swappable working-set fragment.
func Table(data TableData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		target := "#" + TargetID
		var b strings.Builder
		fmt.Fprintf(&b, `<section id="%s" data-filter="%s" data-busy="%t">`, TargetID, esc(data.Filter), data.Busy)

		if data.Error != "" {
			dismissURL := helpers.JoinPath(data.BasePath, "/inventory/error/dismiss")
			fmt.Fprintf(&b, `<div class="alert" role="alert" data-error><span>%s</span>`, esc(data.Error))
			fmt.Fprintf(&b, `<button type="button" hx-post="%s" hx-target="%s" hx-swap="outerHTML">Dismiss</button></div>`, esc(dismissURL), target)
		}

		if len(data.Rows) == 0 {
			fmt.Fprintf(&b, `<p class="empty">%s</p></section>`, esc(data.EmptyMessage))
			_, err := io.WriteString(w, b.String())
			return err
		}

		b.WriteString(`<table><thead><tr><th>ID</th><th>Product</th><th>Color</th><th>Size</th><th>Quantity</th><th>Status</th><th></th></tr></thead><tbody>`)
		for _, row := range data.Rows {
			writeRow(&b, data.BasePath, target, row)
		}
		b.WriteString(`</tbody></table></section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeRow(b *strings.Builder, basePath, target string, row Row) {
	fmt.Fprintf(b, `<tr data-variant-id="%s" data-available="%t">`, esc(row.IDLabel), row.Available)
	fmt.Fprintf(b, `<td>%s</td><td>%s</td>`, esc(row.IDLabel), esc(row.ProductID))
	fmt.Fprintf(b, `<td><span class="swatch" style="background-color: %s"></span> %s</td>`, esc(row.Swatch), esc(row.Color))
	fmt.Fprintf(b, `<td>%s</td>`, esc(row.Size))

	if row.ID == 0 {
		fmt.Fprintf(b, `<td>%s</td><td>%s</td><td></td></tr>`, esc(row.Quantity), esc(row.AvailabilityLabel))
		return
	}

	fmt.Fprintf(b, `<td><form class="quantity" hx-post="%s" hx-target="%s" hx-swap="outerHTML">`, esc(helpers.VariantPath(basePath, row.ID, "quantity")), target)
	fmt.Fprintf(b, `<input type="number" name="quantity" min="0" value="%s"><button type="submit">Save</button></form></td>`, esc(row.Quantity))
	fmt.Fprintf(b, `<td><button type="button" class="toggle" hx-post="%s" hx-target="%s" hx-swap="outerHTML">%s</button> <span class="status">%s</span></td>`,
		esc(helpers.VariantPath(basePath, row.ID, "availability")), target, esc(row.ToggleLabel), esc(row.AvailabilityLabel))
	fmt.Fprintf(b, `<td><button type="button" class="delete" hx-post="%s" hx-vals='{"confirm":"yes"}' hx-confirm="%s" hx-target="%s" hx-swap="outerHTML">Delete</button></td>`,
		esc(helpers.VariantPath(basePath, row.ID, "delete")), esc(row.ConfirmMessage), target)
	b.WriteString(`</tr>`)
}

func esc(s string) string {
	return templ.EscapeString(s)
}
