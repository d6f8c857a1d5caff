package types

// EntityType identifies the kind of accounting document mirrored locally.
type EntityType string

const (
	EntityTypeInvoice    EntityType = "Invoice"
	EntityTypeCreditMemo EntityType = "CreditMemo"
)

func (t EntityType) Validate() bool {
	switch t {
	case EntityTypeInvoice, EntityTypeCreditMemo:
		return true
	}
	return false
}

// DocumentSource records which side originated a mirrored document.
type DocumentSource string

const (
	// DocumentSourceLocal marks documents drafted by this platform.
	DocumentSourceLocal DocumentSource = "rent_soft"
	// DocumentSourceRemote marks documents first seen via sync from QuickBooks.
	DocumentSourceRemote DocumentSource = "qbo"
)

// DocumentStatus is the derived lifecycle status of a mirrored document.
type DocumentStatus string

const (
	DocumentStatusOpen    DocumentStatus = "open"
	DocumentStatusPartial DocumentStatus = "partial"
	DocumentStatusPaid    DocumentStatus = "paid"
	DocumentStatusCredit  DocumentStatus = "credit"
)

// Webhook entity-change operations as QuickBooks sends them.
const (
	OperationCreate = "Create"
	OperationUpdate = "Update"
	OperationDelete = "Delete"
	OperationMerge  = "Merge"
	OperationVoid   = "Void"
)

// SyncEntityNameCDC is the SyncState key for the change-feed watermark.
const SyncEntityNameCDC = "CDC"
