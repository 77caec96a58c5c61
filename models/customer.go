package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
)

type Customer struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	Name          string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	CustomerGroup string    `gorm:"index;size:100;default:null" json:"customer_group"`
	Territory     string    `gorm:"index;size:100;default:null" json:"territory"`
	Email         string    `gorm:"size:100;default:null" json:"email"`
	Phone         string    `gorm:"size:20;default:null" json:"phone"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name          string `json:"name" binding:"required"`
	CustomerGroup string `json:"customer_group"`
	Territory     string `json:"territory"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, businessId string, id int) error {
	// name
	if err := utils.ValidateUnique[Customer](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		BusinessId:    businessId,
		Name:          input.Name,
		CustomerGroup: input.CustomerGroup,
		Territory:     input.Territory,
		Email:         input.Email,
		Phone:         input.Phone,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&customer).Error
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":          input.Name,
		"CustomerGroup": input.CustomerGroup,
		"Territory":     input.Territory,
		"Email":         input.Email,
		"Phone":         input.Phone,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Customer](ctx, businessId, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {

	db := config.GetDB()
	var results []*Customer

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// customer names whose group is one of the given groups
func FindCustomerNamesByGroups(ctx context.Context, businessId string, groups []string) ([]string, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	db := config.GetDB()
	var names []string
	err := db.WithContext(ctx).Model(&Customer{}).
		Where("business_id = ? AND customer_group IN ?", businessId, groups).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// customer names whose territory is one of the given territories
func FindCustomerNamesByTerritories(ctx context.Context, businessId string, territories []string) ([]string, error) {
	if len(territories) == 0 {
		return nil, nil
	}
	db := config.GetDB()
	var names []string
	err := db.WithContext(ctx).Model(&Customer{}).
		Where("business_id = ? AND territory IN ?", businessId, territories).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
