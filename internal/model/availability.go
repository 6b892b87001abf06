package model

// Availability is a time window a provider declares open for work.  Date is
// YYYY-MM-DD and the times are HH:MM, kept as text.
type Availability struct {
    ID         uint64 `json:"id"`
    ProviderID uint64 `json:"provider_id"`
    Date       string `json:"date"`
    StartTime  string `json:"start_time"`
    EndTime    string `json:"end_time"`
}
