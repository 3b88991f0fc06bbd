// internal/domain/connection/dto.go
package connection

// InitiateResponse is returned to the caller after a successful initiate.
// ReadOnly marks sessions opened on a view-only grant.
type InitiateResponse struct {
	ConnectionURL   string `json:"connectionUrl"`
	ConnectionLogID int    `json:"connectionLogId"`
	GatewayConnID   string `json:"gatewayConnId"`
	DeviceName      string `json:"deviceName"`
	Protocol        string `json:"protocol"`
	ReadOnly        bool   `json:"readOnly"`
}

// EndRequest carries the optional final status for an end call.
type EndRequest struct {
	Status Status `json:"status"`
}

// Event announces a lifecycle change on the live feed.
type Event struct {
	Type string `json:"type"`
	Log  *Log   `json:"log"`
}

const (
	EventStarted = "connection.started"
	EventClosed  = "connection.closed"
)

// Page is one page of connection logs.
type Page struct {
	Items      []*Log `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	TotalPages int    `json:"totalPages"`
}

func NewPage(items []*Log, total, page, size int) *Page {
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	if items == nil {
		items = []*Log{}
	}
	return &Page{Items: items, Total: total, Page: page, Size: size, TotalPages: totalPages}
}
