package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
	"github.com/shopspring/decimal"
)

// PromotionalScheme is a discount/free-goods rule evaluated against
// sales and purchase invoices. Scope columns hold the raw declaration
// rows as JSON; resolution to concrete item codes and party names
// happens at evaluation time (see schemeScope.go).
type PromotionalScheme struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	BusinessId         string             `gorm:"index;not null" json:"business_id"`
	Name               string             `gorm:"index;size:140;not null" json:"name" binding:"required"`
	PartySide          PartySide          `gorm:"type:enum('Selling','Buying');not null" json:"party_side" binding:"required"`
	ApplyOn            ApplyOn            `gorm:"type:enum('ItemCode','ItemGroup');not null" json:"apply_on" binding:"required"`
	ItemCodes          ScopeRows          `gorm:"type:json" json:"item_codes"`
	ItemGroups         ScopeRows          `gorm:"type:json" json:"item_groups"`
	Customers          ScopeRows          `gorm:"type:json" json:"customers"`
	CustomerGroups     ScopeRows          `gorm:"type:json" json:"customer_groups"`
	Territories        ScopeRows          `gorm:"type:json" json:"territories"`
	Suppliers          ScopeRows          `gorm:"type:json" json:"suppliers"`
	SupplierGroups     ScopeRows          `gorm:"type:json" json:"supplier_groups"`
	Qualification      PromoQualification `gorm:"type:enum('MinimumAmount','MinimumQuantity');not null" json:"qualification" binding:"required"`
	MinimumAmount      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"minimum_amount"`
	DiscountPercentage decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	MinimumQuantity    decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"minimum_quantity"`
	FreeQuantity       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"free_quantity"`
	ValidFrom          *time.Time         `gorm:"index" json:"valid_from"`
	ValidTo            *time.Time         `gorm:"index" json:"valid_to"`
	IsActive           *bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPromotionalScheme struct {
	Name               string             `json:"name" binding:"required"`
	PartySide          PartySide          `json:"party_side" binding:"required"`
	ApplyOn            ApplyOn            `json:"apply_on" binding:"required"`
	ItemCodes          ScopeRows          `json:"item_codes"`
	ItemGroups         ScopeRows          `json:"item_groups"`
	Customers          ScopeRows          `json:"customers"`
	CustomerGroups     ScopeRows          `json:"customer_groups"`
	Territories        ScopeRows          `json:"territories"`
	Suppliers          ScopeRows          `json:"suppliers"`
	SupplierGroups     ScopeRows          `json:"supplier_groups"`
	Qualification      PromoQualification `json:"qualification" binding:"required"`
	MinimumAmount      decimal.Decimal    `json:"minimum_amount"`
	DiscountPercentage decimal.Decimal    `json:"discount_percentage"`
	MinimumQuantity    decimal.Decimal    `json:"minimum_quantity"`
	FreeQuantity       decimal.Decimal    `json:"free_quantity"`
	ValidFrom          *MyDateString      `json:"valid_from"`
	ValidTo            *MyDateString      `json:"valid_to"`
}

// validate input for both create & update. (id = 0 for create)
// Save-time violations are fatal; nothing is persisted.
func (input *NewPromotionalScheme) validate(ctx context.Context, businessId string, id int) error {
	// name
	if err := utils.ValidateUnique[PromotionalScheme](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// normalize the window bounds to whole local days
	if err := input.ValidFrom.StartOfDayUTCTime(""); err != nil {
		return err
	}
	if err := input.ValidTo.EndOfDayUTCTime(""); err != nil {
		return err
	}
	// valid from cannot be later than valid to
	if input.ValidFrom != nil && input.ValidTo != nil {
		from := time.Time(*input.ValidFrom)
		to := time.Time(*input.ValidTo)
		if from.After(to) {
			return errors.New("valid from date cannot be later than valid to date")
		}
	}
	// item scope modes are mutually exclusive
	if input.ApplyOn == ApplyOnItemCode && !input.ItemGroups.Empty() {
		return errors.New("apply on is 'ItemCode' but item group rows are present, please clear them")
	}
	if input.ApplyOn == ApplyOnItemGroup && !input.ItemCodes.Empty() {
		return errors.New("apply on is 'ItemGroup' but item code rows are present, please clear them")
	}
	// the chosen qualification rule needs its threshold and effect fields
	switch input.Qualification {
	case PromoQualificationMinimumAmount:
		if !input.MinimumAmount.IsPositive() || !input.DiscountPercentage.IsPositive() {
			return errors.New("please specify both minimum amount and discount percentage")
		}
	case PromoQualificationMinimumQuantity:
		if !input.MinimumQuantity.IsPositive() || !input.FreeQuantity.IsPositive() {
			return errors.New("please specify both minimum quantity and free quantity")
		}
	default:
		return errors.New("invalid qualification type")
	}
	return nil
}

func (input *NewPromotionalScheme) toModel(businessId string) PromotionalScheme {
	scheme := PromotionalScheme{
		BusinessId:         businessId,
		Name:               input.Name,
		PartySide:          input.PartySide,
		ApplyOn:            input.ApplyOn,
		ItemCodes:          input.ItemCodes,
		ItemGroups:         input.ItemGroups,
		Customers:          input.Customers,
		CustomerGroups:     input.CustomerGroups,
		Territories:        input.Territories,
		Suppliers:          input.Suppliers,
		SupplierGroups:     input.SupplierGroups,
		Qualification:      input.Qualification,
		MinimumAmount:      input.MinimumAmount,
		DiscountPercentage: input.DiscountPercentage,
		MinimumQuantity:    input.MinimumQuantity,
		FreeQuantity:       input.FreeQuantity,
		IsActive:           utils.NewTrue(),
	}
	if input.ValidFrom != nil {
		from := time.Time(*input.ValidFrom)
		scheme.ValidFrom = &from
	}
	if input.ValidTo != nil {
		to := time.Time(*input.ValidTo)
		scheme.ValidTo = &to
	}
	return scheme
}

func CreatePromotionalScheme(ctx context.Context, input *NewPromotionalScheme) (*PromotionalScheme, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	scheme := input.toModel(businessId)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&scheme).Error; err != nil {
		return nil, err
	}

	return &scheme, nil
}

func UpdatePromotionalScheme(ctx context.Context, id int, input *NewPromotionalScheme) (*PromotionalScheme, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	scheme, err := utils.FetchModel[PromotionalScheme](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	updated := input.toModel(businessId)
	updated.ID = scheme.ID
	updated.IsActive = scheme.IsActive

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deleting a scheme has no cascading effect: discounts already applied
// to past invoices stay on those invoices.
func DeletePromotionalScheme(ctx context.Context, id int) (*PromotionalScheme, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[PromotionalScheme](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetPromotionalScheme(ctx context.Context, id int) (*PromotionalScheme, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[PromotionalScheme](ctx, businessId, id)
}

func GetPromotionalSchemes(ctx context.Context, name *string, applyOn *ApplyOn, partySide *PartySide) ([]*PromotionalScheme, error) {

	db := config.GetDB()
	var results []*PromotionalScheme

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name = ?", *name)
	}
	if applyOn != nil && len(*applyOn) > 0 {
		dbCtx = dbCtx.Where("apply_on = ?", *applyOn)
	}
	if partySide != nil && len(*partySide) > 0 {
		dbCtx = dbCtx.Where("party_side = ?", *partySide)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// schemes of the given side whose validity window covers the date.
// A missing bound is open-ended.
func GetActiveSchemes(ctx context.Context, businessId string, side PartySide, date time.Time) ([]*PromotionalScheme, error) {

	db := config.GetDB()
	var results []*PromotionalScheme
	err := db.WithContext(ctx).
		Where("business_id = ? AND party_side = ? AND is_active = true", businessId, side).
		Where("valid_from IS NULL OR valid_from <= ?", date).
		Where("valid_to IS NULL OR valid_to >= ?", date).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
