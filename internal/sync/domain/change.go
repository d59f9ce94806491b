package domain

// ChangeRecord is one change-log entry returned by the provider.
type ChangeRecord struct {
	HistoryID       uint64
	AddedMessageIDs []string
}

// ChangePage is one page of the change log.
type ChangePage struct {
	Records       []ChangeRecord
	NextPageToken string
}
