package relations

type Person_FOLLOWS_Person struct {
	Since string `json:"since"`
}
