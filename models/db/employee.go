package dbmodels

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Employee struct {
	BaseOrgModel
	FirstName string `gorm:"type:varchar(150)"`
	LastName  string `gorm:"type:varchar(150)"`
	Email     string `gorm:"type:varchar(255)"`
	IsActive  bool
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (r Employee) GetFullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", r.FirstName, r.LastName))
}
