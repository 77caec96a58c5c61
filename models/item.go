package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
)

type Item struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	ItemCode   string    `gorm:"index;size:100;not null" json:"item_code" binding:"required"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	ItemGroup  string    `gorm:"index;size:100;default:null" json:"item_group"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	ItemCode  string `json:"item_code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	ItemGroup string `json:"item_group"`
}

type ItemGroup struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItemGroup struct {
	Name string `json:"name" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewItem) validate(ctx context.Context, businessId string, id int) error {
	// item code
	if err := utils.ValidateUnique[Item](ctx, businessId, "item_code", input.ItemCode, id); err != nil {
		return err
	}
	// item group must exist when given
	if input.ItemGroup != "" {
		count, err := utils.ResourceCountWhere[ItemGroup](ctx, businessId, "name = ?", input.ItemGroup)
		if err != nil {
			return err
		}
		if count <= 0 {
			return errors.New("item group not found")
		}
	}
	return nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := Item{
		BusinessId: businessId,
		ItemCode:   input.ItemCode,
		Name:       input.Name,
		ItemGroup:  input.ItemGroup,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&item).Error
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[Item](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"ItemCode":  input.ItemCode,
		"Name":      input.Name,
		"ItemGroup": input.ItemGroup,
	}).Error
	if err != nil {
		return nil, err
	}
	return item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Item](ctx, businessId, id)
}

func GetItems(ctx context.Context, name *string, itemGroup *string) ([]*Item, error) {

	db := config.GetDB()
	var results []*Item

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if itemGroup != nil && len(*itemGroup) > 0 {
		dbCtx = dbCtx.Where("item_group = ?", *itemGroup)
	}
	err := dbCtx.Order("item_code").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// item codes whose catalog group is one of the given groups
func FindItemCodesByGroups(ctx context.Context, businessId string, groups []string) ([]string, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	db := config.GetDB()
	var codes []string
	err := db.WithContext(ctx).Model(&Item{}).
		Where("business_id = ? AND item_group IN ?", businessId, groups).
		Pluck("item_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func CreateItemGroup(ctx context.Context, input *NewItemGroup) (*ItemGroup, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[ItemGroup](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	group := ItemGroup{
		BusinessId: businessId,
		Name:       input.Name,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func GetItemGroups(ctx context.Context) ([]*ItemGroup, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[ItemGroup](ctx, businessId)
}
