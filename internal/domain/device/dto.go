// internal/domain/device/dto.go
package device

// CreateDeviceRequest for admin device registration
type CreateDeviceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Host        string   `json:"host" binding:"required"`
	Port        int      `json:"port" binding:"required"`
	Protocol    Protocol `json:"protocol" binding:"required"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	PrivateKey  string   `json:"privateKey"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateDeviceRequest for admin device updates; nil fields are left unchanged.
type UpdateDeviceRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Host        *string   `json:"host"`
	Port        *int      `json:"port"`
	Protocol    *Protocol `json:"protocol"`
	Username    *string   `json:"username"`
	Password    *string   `json:"password"`
	PrivateKey  *string   `json:"privateKey"`
	Tags        []string  `json:"tags"`
	IsActive    *bool     `json:"isActive"`
}

// ListFilters narrows a device listing.
type ListFilters struct {
	Search   string
	Protocol Protocol
	Status   Status
	Page     int
	Size     int
}

// Normalize clamps paging to sane bounds. Size is capped at 100.
func (f *ListFilters) Normalize() {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = 20
	}
	if f.Size > 100 {
		f.Size = 100
	}
}

// Page is one page of catalog devices.
type Page struct {
	Items      []*Device `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalPages int       `json:"totalPages"`
}

func NewPage(items []*Device, total, page, size int) *Page {
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	if items == nil {
		items = []*Device{}
	}
	return &Page{Items: items, Total: total, Page: page, Size: size, TotalPages: totalPages}
}
