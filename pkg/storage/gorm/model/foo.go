package model

import "time"

const TableNameFoo = "foos"

// Foo is the row stored for an apis.Foo. The spec name column is prefixed to
// avoid clashing with the object name.
type Foo struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	ObjectKey       string    `gorm:"column:object_key;type:varchar(512);not null;uniqueIndex" json:"object_key"`
	Namespace       string    `gorm:"column:namespace;type:varchar(253);not null;index" json:"namespace"`
	Name            string    `gorm:"column:name;type:varchar(253);not null" json:"name"`
	SpecName        string    `gorm:"column:spec_name;type:varchar(253)" json:"spec_name"`
	Info            string    `gorm:"column:info;type:text" json:"info"`
	IsBad           bool      `gorm:"column:is_bad;not null;default:false" json:"is_bad"`
	ResourceVersion string    `gorm:"column:resource_version;type:varchar(32)" json:"resource_version"`
	CreateTime      time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdateTime      time.Time `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
}

func (*Foo) TableName() string {
	return TableNameFoo
}
