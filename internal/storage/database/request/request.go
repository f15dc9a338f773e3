package request

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// 需求狀態常數.
const (
	StatusPending   = "pending"
	StatusReviewed  = "reviewed"
	StatusContacted = "contacted"
	StatusClosed    = "closed"
)

// PropertyRequest 物業需求數據模型.
type PropertyRequest struct {
	OID            bson.ObjectID `bson:"_id,omitempty" json:"-"`
	ID             string        `bson:"id,omitempty" json:"_id,omitempty"`
	Name           string        `bson:"name" json:"name"`
	Email          string        `bson:"email" json:"email"`
	Phone          string        `bson:"phone" json:"phone"`
	PropertyType   string        `bson:"property_type" json:"propertyType"`
	Budget         string        `bson:"budget" json:"budget"`
	Location       string        `bson:"location" json:"location"`
	AdditionalInfo string        `bson:"additional_info,omitempty" json:"additionalInfo,omitempty"`
	Status         string        `bson:"status" json:"status"`
	CreatedAt      time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updatedAt"`
}

// MissingFields 列出缺少的必填欄位.
func (r *PropertyRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(r.PropertyType) == "" {
		missing = append(missing, "propertyType")
	}
	if strings.TrimSpace(r.Budget) == "" {
		missing = append(missing, "budget")
	}
	if strings.TrimSpace(r.Location) == "" {
		missing = append(missing, "location")
	}
	return missing
}

// Validate 驗證需求欄位.
func (r *PropertyRequest) Validate() error {
	if missing := r.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
