package role

const (
	System    = "system"
	User      = "user"
	Assistant = "assistant"
)
