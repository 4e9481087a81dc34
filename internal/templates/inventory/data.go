package inventory

import (
	"fmt"
	"strconv"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/colors"
	inv "github.com/clothhaven/storefront/internal/inventory"
)

// TargetID is the DOM id every mutation swaps.
const TargetID = "inventory-table"

// PageData is the payload for the full inventory console page.
type PageData struct {
	Title     string
	BasePath  string
	CSRFToken string
	Table     TableData
}

// TableData is the swappable fragment with the working set.
type TableData struct {
	BasePath     string
	Filter       string
	Rows         []Row
	Error        string
	EmptyMessage string
	Busy         bool
	Loaded       bool
}

// Row is one variant record prepared for display.
type Row struct {
	ID                int64
	IDLabel           string
	ProductID         string
	Color             string
	Swatch            string
	Size              string
	Quantity          string
	Available         bool
	AvailabilityLabel string
	ToggleLabel       string
	ConfirmMessage    string
}

// BuildTable converts a console snapshot into the table fragment payload. errOverride
// replaces the console's last error, for input rejected before the console was called.
func BuildTable(state inv.State, basePath string, errOverride string) TableData {
	rows := make([]Row, 0, len(state.Entries))
	for _, rec := range state.Entries {
		rows = append(rows, buildRow(rec))
	}

	message := state.ErrorMessage()
	if errOverride != "" {
		message = errOverride
	}

	filter := ""
	if state.Filter != nil {
		filter = strconv.FormatInt(*state.Filter, 10)
	}

	return TableData{
		BasePath:     basePath,
		Filter:       filter,
		Rows:         rows,
		Error:        message,
		EmptyMessage: emptyMessage(filter),
		Busy:         state.Busy,
		Loaded:       state.Loaded,
	}
}

func buildRow(rec backend.VariantRecord) Row {
	row := Row{
		ProductID:         strconv.FormatInt(rec.ProductID, 10),
		Color:             rec.Color,
		Swatch:            colors.Resolve(rec.Color).CSS(),
		Size:              rec.Size,
		Quantity:          strconv.Itoa(rec.Quantity),
		Available:         rec.Availability,
		AvailabilityLabel: "Unavailable",
		ToggleLabel:       "Mark available",
		IDLabel:           "-",
	}
	if rec.Availability {
		row.AvailabilityLabel = "Available"
		row.ToggleLabel = "Mark unavailable"
	}
	if rec.ID != nil {
		row.ID = *rec.ID
		row.IDLabel = strconv.FormatInt(*rec.ID, 10)
		row.ConfirmMessage = fmt.Sprintf("Delete variant %d?", *rec.ID)
	}
	return row
}

func emptyMessage(filter string) string {
	if filter != "" {
		return "No variants found for product " + filter + "."
	}
	return "No variants found."
}
