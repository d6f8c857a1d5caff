package webhook

// Payload is the webhook body QuickBooks posts: one notification per company
// file (realm), each carrying a batch of entity-change events.
type Payload struct {
	EventNotifications []EventNotification `json:"eventNotifications"`
}

// EventNotification is the change batch for one realm.
type EventNotification struct {
	RealmID         string          `json:"realmId"`
	DataChangeEvent DataChangeEvent `json:"dataChangeEvent"`
}

// DataChangeEvent lists the changed entities.
type DataChangeEvent struct {
	Entities []EntityChange `json:"entities"`
}

// EntityChange is one changed entity: its QuickBooks type name, id, and the
// operation (Create, Update, Delete, Merge, Void).
type EntityChange struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Operation   string `json:"operation"`
	LastUpdated string `json:"lastUpdated"`
}

// Result summarizes one processed webhook delivery.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
