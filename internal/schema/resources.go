package schema

// Transactions is the contract for personal-finance transactions.
func Transactions() Schema {
	return Schema{
		Resource: "transactions",
		Fields: []Field{
			{Name: "description", Kind: String, Required: true, Rule: NonEmpty()},
			{Name: "amount", Kind: Number, Required: true, Rule: Min(0.01)},
			{Name: "kind", Kind: String, Required: true, Rule: OneOf("income", "expense")},
			{Name: "category", Kind: String, Rule: MaxLen(64)},
			{Name: "occurredAt", Kind: DateTime, Required: true},
		},
	}
}

// Uploads is the contract for uploaded file metadata. Data carries the
// base64-encoded content; size is the decoded byte count reported by
// the client.
func Uploads() Schema {
	return Schema{
		Resource: "uploads",
		Fields: []Field{
			{Name: "filename", Kind: String, Required: true, Rule: NonEmpty()},
			{Name: "contentType", Kind: String, Required: true, Rule: NonEmpty()},
			{Name: "size", Kind: Number, Required: true, Rule: Min(0)},
			{Name: "data", Kind: String, Required: true, Rule: NonEmpty()},
		},
	}
}
