package echoapi

// ListResponse is the common paginated list envelope.
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func newListResponse(items interface{}, total, page, pageSize int) ListResponse {
	return ListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}
}
