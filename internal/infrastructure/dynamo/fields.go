package dynamo

// DynamoDB attribute names referenced outside marshalled structs.
const (
	fieldEmail     = "email"
	fieldUpdatedAt = "updated_at"
)
