package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Catalog resolves line items against a snapshot of the parts table.
type Catalog struct {
	byID       map[int64]*models.Part
	byName     map[string]*models.Part
	categories map[string]*models.Category
}

// New indexes parts and categories. Parts are matched by id first and then
// by any of their names, case-insensitively; the first part wins a name
// clash.
func New(parts []models.Part, categories []models.Category) *Catalog {
	c := &Catalog{
		byID:       make(map[int64]*models.Part, len(parts)),
		byName:     make(map[string]*models.Part, len(parts)*3),
		categories: make(map[string]*models.Category, len(categories)),
	}
	for i := range parts {
		p := &parts[i]
		c.byID[p.ID] = p
		for _, n := range p.Names() {
			key := strings.ToLower(n)
			if _, taken := c.byName[key]; !taken {
				c.byName[key] = p
			}
		}
	}
	for i := range categories {
		c.categories[categories[i].Name] = &categories[i]
	}
	return c
}

// Resolve finds the catalog part behind a line item, or nil.
func (c *Catalog) Resolve(item models.LineItem) *models.Part {
	if item.PartID != nil {
		if p, ok := c.byID[*item.PartID]; ok {
			return p
		}
	}
	return c.byName[strings.ToLower(strings.TrimSpace(item.Name))]
}

// CategoryLabel is the category's display name in lang, or the stored name
// when the category is unknown.
func (c *Catalog) CategoryLabel(name, lang string) string {
	if cat, ok := c.categories[name]; ok {
		return cat.NameIn(lang)
	}
	return name
}

type ItemView struct {
	PartID   *int64 `json:"part_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderView is an order prepared for display in one language.
type OrderView struct {
	ID            int64         `json:"id"`
	MechanicID    *int64        `json:"mechanic_id"`
	MechanicName  string        `json:"mechanic_name"`
	Category      string        `json:"category"`
	CategoryLabel string        `json:"category_label"`
	PlateNumber   string        `json:"plate_number"`
	Items         []ItemView    `json:"items"`
	SelectedParts []string      `json:"selected_parts"`
	IsOriginal    bool          `json:"is_original"`
	PhotoURL      string        `json:"photo_url"`
	Comment       string        `json:"comment"`
	Status        models.Status `json:"status"`
	StatusLabel   string        `json:"status_label"`
	Printed       bool          `json:"printed"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}

// View localizes o. Resolved items take the part's name in lang; the rest
// keep the name stored at submission. Items are ordered by the part's sort
// order, with unresolved items last in their original order.
func (c *Catalog) View(o *models.Order, lang string) OrderView {
	type ranked struct {
		item  ItemView
		order int
		known bool
	}
	rows := make([]ranked, len(o.Items))
	for i, it := range o.Items {
		r := ranked{item: ItemView{PartID: it.PartID, Name: it.Name, Quantity: it.Quantity}}
		if p := c.Resolve(it); p != nil {
			r.item.Name = p.NameIn(lang)
			r.order = p.SortOrder
			r.known = true
		}
		rows[i] = r
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.known != b.known {
			return a.known
		}
		return a.known && a.order < b.order
	})

	v := OrderView{
		ID:            o.ID,
		MechanicID:    o.MechanicID,
		MechanicName:  o.MechanicName,
		Category:      o.Category,
		CategoryLabel: c.CategoryLabel(o.Category, lang),
		PlateNumber:   o.PlateNumber,
		Items:         make([]ItemView, len(rows)),
		SelectedParts: make([]string, len(rows)),
		IsOriginal:    o.IsOriginal,
		PhotoURL:      o.PhotoURL,
		Comment:       o.Comment,
		Status:        o.Status,
		StatusLabel:   i18n.T(lang, "status."+string(o.Status)),
		Printed:       o.Printed,
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
	}
	for i, r := range rows {
		v.Items[i] = r.item
		v.SelectedParts[i] = r.item.Name
	}
	return v
}

func (c *Catalog) Views(orders []models.Order, lang string) []OrderView {
	out := make([]OrderView, len(orders))
	for i := range orders {
		out[i] = c.View(&orders[i], lang)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

type PublicPart struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type PublicCategory struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Label     string       `json:"label"`
	SortOrder int          `json:"sort_order"`
	Parts     []PublicPart `json:"parts"`
}

// Public groups active parts under their active categories with names in
// lang. Parts whose category is missing or inactive are left out.
func Public(categories []models.Category, parts []models.Part, lang string) []PublicCategory {
	out := make([]PublicCategory, 0, len(categories))
	index := make(map[string]int, len(categories))
	for _, cat := range categories {
		if !cat.IsActive {
			continue
		}
		index[cat.Name] = len(out)
		out = append(out, PublicCategory{
			ID:        cat.ID,
			Name:      cat.Name,
			Label:     cat.NameIn(lang),
			SortOrder: cat.SortOrder,
			Parts:     []PublicPart{},
		})
	}
	for i := range parts {
		p := &parts[i]
		if !p.IsActive {
			continue
		}
		ci, ok := index[p.Category]
		if !ok {
			continue
		}
		out[ci].Parts = append(out[ci].Parts, PublicPart{
			ID:          p.ID,
			Name:        p.NameIn(lang),
			Description: p.DescriptionIn(lang),
			SortOrder:   p.SortOrder,
		})
	}
	for i := range out {
		sort.SliceStable(out[i].Parts, func(a, b int) bool {
			return out[i].Parts[a].SortOrder < out[i].Parts[b].SortOrder
		})
	}
	return out
}
