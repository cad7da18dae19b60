package relations

type X_LIKES_Post struct {
	Weight float64 `json:"weight,omitempty"`
}
