package domain

import "time"

type Property struct {
	PropertyID  string    `json:"id" dynamodbav:"property_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	Location    string    `json:"location" dynamodbav:"location"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Type        string    `json:"type" dynamodbav:"type"`
	Bedrooms    int       `json:"bedrooms" dynamodbav:"bedrooms"`
	Bathrooms   int       `json:"bathrooms" dynamodbav:"bathrooms"`
	Size        string    `json:"size" dynamodbav:"size"`
	Description string    `json:"description" dynamodbav:"description"`
	Amenities   []string  `json:"amenities" dynamodbav:"amenities"`
	Images      []string  `json:"images" dynamodbav:"images"`
	OwnerID     string    `json:"userId" dynamodbav:"owner_id"`
	OwnerEmail  string    `json:"userEmail" dynamodbav:"owner_email"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// PropertyInput carries the editable fields of a listing.
type PropertyInput struct {
	Title       string   `validate:"required"`
	Location    string   `validate:"required"`
	Price       float64  `validate:"gte=0"`
	Type        string   `validate:"required"`
	Bedrooms    int      `validate:"gte=0"`
	Bathrooms   int      `validate:"gte=0"`
	Size        string
	Description string
	Amenities   []string `validate:"dive,required"`
}

// Image is an uploaded image held in memory before it is stored.
type Image struct {
	Filename string
	Data     []byte
}
