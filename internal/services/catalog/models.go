package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Review is embedded in its product; it has no independent lifecycle.
type Review struct {
	ID        bson.ObjectID `bson:"_id" json:"id" example:"683cdb8aa96ad71e8e075bd3"`
	UserID    bson.ObjectID `bson:"user_id" json:"user_id" example:"683cdb8aa96ad71e8e075bd0"`
	UserName  string        `bson:"user_name" json:"user_name" example:"Ada Lovelace"`
	Rating    int           `bson:"rating" json:"rating" example:"4"`
	Comment   string        `bson:"comment" json:"comment" example:"Fast shipping, works great"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// Product is the aggregate root: the document plus its embedded reviews.
// Rating and NumOfReviews are derived from Reviews and recomputed on every
// review mutation.
type Product struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd2"`
	Name        string        `bson:"name" json:"name" validate:"required" example:"Mechanical Keyboard"`
	Description string        `bson:"description" json:"description" example:"Tenkeyless, hot-swappable switches"`
	Price       float64       `bson:"price" json:"price" example:"89.99"`
	Stock       int           `bson:"stock" json:"stock" example:"12"`
	Category    string        `bson:"category" json:"category" example:"electronics"`
	OwnerID     bson.ObjectID `bson:"owner_id" json:"owner_id" example:"683cdb8aa96ad71e8e075bd0"`

	Reviews      []Review `bson:"reviews" json:"reviews"`
	Rating       float64  `bson:"rating" json:"rating" example:"3.5"`
	NumOfReviews int      `bson:"num_of_reviews" json:"num_of_reviews" example:"2"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProductPatch is the allow-listed field set for product updates.
// Derived fields (reviews, rating, num_of_reviews) are not reachable here.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Category    *string
}

// Review event types
const (
	ReviewSubmitted = "submitted"
	ReviewDeleted   = "deleted"
)

// ReviewEvent is broadcast to subscribers of a product's review stream.
type ReviewEvent struct {
	Type      string        `json:"type"` // "submitted" or "deleted"
	ProductID bson.ObjectID `json:"product_id"`
	Review    *Review       `json:"review,omitempty"`
	Rating    float64       `json:"rating"`
	Count     int           `json:"num_of_reviews"`
}
