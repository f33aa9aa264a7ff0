package models

import "time"

// Promotion is a discount code valid inside a date window.
type Promotion struct {
	ID                 string    `bson:"_id" json:"id"`
	Code               string    `bson:"code" json:"code"`
	Description        string    `bson:"description" json:"description"`
	DiscountPercentage float64   `bson:"discount_percentage" json:"discount_percentage"`
	ValidFrom          time.Time `bson:"valid_from" json:"valid_from"`
	ValidTo            time.Time `bson:"valid_to" json:"valid_to"`
	IsActive           bool      `bson:"is_active" json:"is_active"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}

// ActiveAt reports whether the promotion can be redeemed at t.
func (p Promotion) ActiveAt(t time.Time) bool {
	return p.IsActive && !t.Before(p.ValidFrom) && !t.After(p.ValidTo)
}

// FAQ is a static question and answer pair.
type FAQ struct {
	ID       int    `bson:"_id" json:"id"`
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
	Category string `bson:"category" json:"category"`
}
