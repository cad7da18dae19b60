package models

type Post struct {
	Title string `json:"title"`
}
