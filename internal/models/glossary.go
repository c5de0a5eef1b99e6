package models

type GlossaryTerm struct {
	ID          string `json:"id"`
	Term        string `json:"term"`
	Description string `json:"description"`
}
