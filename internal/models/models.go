package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a parts order.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusIssued     Status = "issued"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusNew, StatusProcessing, StatusReady, StatusIssued, StatusCancelled}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// LineItem is one requested part. PartID is set when the mechanic picked the
// part from the catalog; Name is what was shown at submission time.
type LineItem struct {
	PartID   *int64 `json:"part_id,omitempty"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// UnmarshalJSON accepts both the object form and a bare string (older
// clients submit selected parts as a list of names).
func (li *LineItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*li = LineItem{Name: name, Quantity: 1}
		return nil
	}
	type plain LineItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*li = LineItem(p)
	return nil
}

type Order struct {
	ID int64 `json:"id"`

	// Exactly one of MechanicID and GuestName is set.
	MechanicID   *int64 `json:"mechanic_id"`
	GuestName    string `json:"guest_name,omitempty"`
	GuestChatID  string `json:"guest_chat_id,omitempty"`
	MechanicName string `json:"mechanic_name"` // computed on read
	MechanicChat string `json:"-"`             // computed on read

	Category    string     `json:"category"`
	PlateNumber string     `json:"plate_number"`
	Items       []LineItem `json:"items"`
	IsOriginal  bool       `json:"is_original"`
	PhotoURL    string     `json:"photo_url"`
	Comment     string     `json:"comment"`
	Status      Status     `json:"status"`
	Printed     bool       `json:"printed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChatID is where mechanic-facing notifications for this order go.
func (o *Order) ChatID() string {
	if o.MechanicID != nil {
		return o.MechanicChat
	}
	return o.GuestChatID
}

type Mechanic struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	PasswordHash       string     `json:"-"`
	FullName           string     `json:"full_name"`
	ChatID             string     `json:"telegram_id"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	IsActive           bool       `json:"is_active"`
	NotifyOnReady      bool       `json:"notify_on_ready"`
	NotifyOnProcessing bool       `json:"notify_on_processing"`
	NotifyOnCancelled  bool       `json:"notify_on_cancelled"`
	Language           string     `json:"language"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastLogin          *time.Time `json:"last_login"`
}

// WantsNotification reports whether the mechanic opted in to messages about
// an order entering status s.
func (m *Mechanic) WantsNotification(s Status) bool {
	switch s {
	case StatusReady:
		return m.NotifyOnReady
	case StatusProcessing:
		return m.NotifyOnProcessing
	case StatusCancelled:
		return m.NotifyOnCancelled
	}
	return false
}

// OrderStats counts a set of orders by status.
type OrderStats struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	Processing int `json:"processing"`
	Ready      int `json:"ready"`
	Issued     int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

func (s *OrderStats) Add(status Status, n int) {
	s.Total += n
	switch status {
	case StatusNew:
		s.New += n
	case StatusProcessing:
		s.Processing += n
	case StatusReady:
		s.Ready += n
	case StatusIssued:
		s.Issued += n
	case StatusCancelled:
		s.Cancelled += n
	}
}

type Category struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	NameRU           string    `json:"name_ru"`
	NameEN           string    `json:"name_en"`
	NameHE           string    `json:"name_he"`
	IsActive         bool      `json:"is_active"`
	SortOrder        int       `json:"sort_order"`
	PartsCount       int       `json:"parts_count"`
	ActivePartsCount int       `json:"active_parts_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Part struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"` // legacy single-language name
	NameRU        string    `json:"name_ru"`
	NameEN        string    `json:"name_en"`
	NameHE        string    `json:"name_he"`
	DescriptionRU string    `json:"description_ru"`
	DescriptionEN string    `json:"description_en"`
	DescriptionHE string    `json:"description_he"`
	Category      string    `json:"category"`
	IsActive      bool      `json:"is_active"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Admin is a back-office account.
type Admin struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
}

// NameIn returns the part's name in lang, falling back to the Russian name
// and then the legacy name.
func (p *Part) NameIn(lang string) string {
	switch lang {
	case "en":
		if p.NameEN != "" {
			return p.NameEN
		}
	case "he":
		if p.NameHE != "" {
			return p.NameHE
		}
	}
	if p.NameRU != "" {
		return p.NameRU
	}
	return p.Name
}

func (p *Part) DescriptionIn(lang string) string {
	switch lang {
	case "en":
		if p.DescriptionEN != "" {
			return p.DescriptionEN
		}
	case "he":
		if p.DescriptionHE != "" {
			return p.DescriptionHE
		}
	}
	return p.DescriptionRU
}

// Names returns every non-empty name the part is known by.
func (p *Part) Names() []string {
	var out []string
	for _, n := range []string{p.NameRU, p.NameEN, p.NameHE, p.Name} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (c *Category) NameIn(lang string) string {
	switch lang {
	case "en":
		if c.NameEN != "" {
			return c.NameEN
		}
	case "he":
		if c.NameHE != "" {
			return c.NameHE
		}
	}
	if c.NameRU != "" {
		return c.NameRU
	}
	return c.Name
}
