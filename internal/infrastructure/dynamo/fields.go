package dynamo

// DynamoDB attribute names used in keys and expressions across repos.
const (
	fieldAccountID  = "account_id"
	fieldEmail      = "email"
	fieldPropertyID = "property_id"
	fieldOwnerID    = "owner_id"
	fieldUpdatedAt  = "updated_at"

	indexOwner = "owner_id-property_id-index"
)
