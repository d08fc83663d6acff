package model

// Mapping binds a short id to a target URL. Timestamps are milliseconds since
// the Unix epoch; a nil ExpiresAt means the mapping never expires.
type Mapping struct {
	ID               string  `json:"id" gorm:"primaryKey;size:64"`
	URL              string  `json:"url" gorm:"column:url;type:text;not null"`
	CreatedAt        int64   `json:"createdAt" gorm:"not null;index;autoCreateTime:false"`
	ExpiresAt        *int64  `json:"expiresAt" gorm:"index"`
	IsPresentation   bool    `json:"isPresentation" gorm:"not null;default:false;index"`
	PresentationData *string `json:"presentationData" gorm:"type:text"`
	CustomData       *string `json:"customData" gorm:"type:text"`
}

// TableName pins the table name shared with imported legacy data.
func (Mapping) TableName() string {
	return "mappings"
}

// MappingPage is one page of mappings ordered by creation time, newest first.
type MappingPage struct {
	Items      []Mapping  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// MappingUpdate lists the columns a partial update may touch. Only fields
// whose Set flag (or non-nil pointer) is present are written.
type MappingUpdate struct {
	URL              *string
	ExpiresAt        Optional[*int64]
	IsPresentation   *bool
	PresentationData Optional[*string]
	CustomData       Optional[*string]
}

// Columns returns the column/value pairs to write.
func (u MappingUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.URL != nil {
		cols["url"] = *u.URL
	}
	if u.ExpiresAt.Set {
		cols["expires_at"] = u.ExpiresAt.Value
	}
	if u.IsPresentation != nil {
		cols["is_presentation"] = *u.IsPresentation
	}
	if u.PresentationData.Set {
		cols["presentation_data"] = u.PresentationData.Value
	}
	if u.CustomData.Set {
		cols["custom_data"] = u.CustomData.Value
	}
	return cols
}

// IsEmpty reports whether the update would not touch any column.
func (u MappingUpdate) IsEmpty() bool {
	return len(u.Columns()) == 0
}
