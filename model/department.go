package model

import "gorm.io/gorm"

// Department groups doctors by hospital unit.
type Department struct {
	gorm.Model
	Name             string `json:"name" gorm:"size:100;not null"`
	Description      string `json:"description" gorm:"type:text"`
	HeadOfDepartment string `json:"head_of_department" gorm:"size:100"`
	Phone            string `json:"phone" gorm:"size:20"`
	Email            string `json:"email" gorm:"size:191"`
}
