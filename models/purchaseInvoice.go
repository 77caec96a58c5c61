package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/promo_backend/config"
	"bitbucket.org/mmdatafocus/promo_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseInvoice struct {
	ID            int                     `gorm:"primary_key" json:"id"`
	BusinessId    string                  `gorm:"index;not null" json:"business_id"`
	InvoiceNumber string                  `gorm:"index;size:100;not null" json:"invoice_number" binding:"required"`
	SupplierName  string                  `gorm:"index;size:100;not null" json:"supplier_name" binding:"required"`
	InvoiceDate   time.Time               `gorm:"index;not null" json:"invoice_date"`
	Status        InvoiceStatus           `gorm:"type:enum('Draft','Confirmed','Void','Partial Paid','Paid');not null;default:'Draft'" json:"status"`
	TotalAmount   decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount    decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Details       []PurchaseInvoiceDetail `gorm:"foreignKey:PurchaseInvoiceId" json:"details"`
	CreatedAt     time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseInvoiceDetail struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	PurchaseInvoiceId  int             `gorm:"index;not null" json:"purchase_invoice_id"`
	ItemCode           string          `gorm:"index;size:100;not null" json:"item_code"`
	Name               string          `gorm:"size:255" json:"name"`
	DetailQty          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_qty"`
	DetailUnitRate     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_unit_rate"`
	DetailNetAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_net_amount"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	AppliedScheme      string          `gorm:"size:140;default:null" json:"applied_scheme"`
	IsFreeItem         *bool           `gorm:"not null;default:false" json:"is_free_item"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseInvoice struct {
	InvoiceNumber string                     `json:"invoice_number" binding:"required"`
	SupplierName  string                     `json:"supplier_name" binding:"required"`
	InvoiceDate   *MyDateString              `json:"invoice_date" binding:"required"`
	Details       []NewPurchaseInvoiceDetail `json:"details" binding:"required,min=1,dive"`
}

type NewPurchaseInvoiceDetail struct {
	ItemCode string          `json:"item_code" binding:"required"`
	Name     string          `json:"name"`
	Qty      decimal.Decimal `json:"qty" binding:"required"`
	UnitRate decimal.Decimal `json:"unit_rate"`
}

func (input *NewPurchaseInvoice) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateUnique[PurchaseInvoice](ctx, businessId, "invoice_number", input.InvoiceNumber, 0); err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[Supplier](ctx, businessId, "name = ?", input.SupplierName)
	if err != nil {
		return err
	}
	if count <= 0 {
		return errors.New("supplier not found")
	}
	for _, detail := range input.Details {
		if !detail.Qty.IsPositive() {
			return errors.New("detail quantity must be positive")
		}
		if detail.UnitRate.IsNegative() {
			return errors.New("detail unit rate cannot be negative")
		}
	}
	return nil
}

func CreatePurchaseInvoice(ctx context.Context, input *NewPurchaseInvoice) (*PurchaseInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	if err := input.InvoiceDate.StartOfDayUTCTime(""); err != nil {
		return nil, err
	}
	invoice := PurchaseInvoice{
		BusinessId:    businessId,
		InvoiceNumber: input.InvoiceNumber,
		SupplierName:  input.SupplierName,
		InvoiceDate:   time.Time(*input.InvoiceDate),
		Status:        InvoiceStatusDraft,
	}
	total := decimal.Zero
	for _, detail := range input.Details {
		net := detail.Qty.Mul(detail.UnitRate).Round(4)
		invoice.Details = append(invoice.Details, PurchaseInvoiceDetail{
			ItemCode:        detail.ItemCode,
			Name:            detail.Name,
			DetailQty:       detail.Qty,
			DetailUnitRate:  detail.UnitRate,
			DetailNetAmount: net,
			IsFreeItem:      utils.NewFalse(),
		})
		total = total.Add(net)
	}
	invoice.TotalAmount = total

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ConfirmPurchaseInvoice moves a draft invoice to Confirmed, running
// the promo hook for the buying side first.
func ConfirmPurchaseInvoice(ctx context.Context, id int) (*PurchaseInvoice, []string, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var invoice PurchaseInvoice
	err := db.WithContext(ctx).Preload("Details").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&invoice).Error
	if err != nil {
		return nil, nil, utils.ErrorRecordNotFound
	}
	if invoice.Status != InvoiceStatusDraft {
		return nil, nil, errors.New("only draft invoices can be confirmed")
	}

	var supplier Supplier
	err = db.WithContext(ctx).
		Where("business_id = ? AND name = ?", businessId, invoice.SupplierName).
		First(&supplier).Error
	if err != nil {
		return nil, nil, errors.New("supplier not found")
	}

	doc := &SchemeDocument{
		PartySide:  PartySideBuying,
		PartyName:  invoice.SupplierName,
		PartyGroup: supplier.SupplierGroup,
		Date:       invoice.InvoiceDate,
	}
	for i := range invoice.Details {
		doc.Lines = append(doc.Lines, purchaseDetailToLine(&invoice.Details[i]))
	}

	notices, err := ApplyPromotionalSchemes(ctx, businessId, doc)
	if err != nil {
		return nil, nil, err
	}

	existing := len(invoice.Details)
	total := decimal.Zero
	for i, line := range doc.Lines {
		if i < existing {
			lineToPurchaseDetail(line, &invoice.Details[i])
		} else {
			detail := PurchaseInvoiceDetail{PurchaseInvoiceId: invoice.ID}
			lineToPurchaseDetail(line, &detail)
			invoice.Details = append(invoice.Details, detail)
		}
		total = total.Add(line.NetAmount)
	}
	invoice.TotalAmount = total
	invoice.Status = InvoiceStatusConfirmed

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	// FullSaveAssociations: discount fields on existing detail rows must
	// be written too, not just the appended free rows.
	if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return &invoice, notices, nil
}

func PayPurchaseInvoice(ctx context.Context, id int, amount decimal.Decimal) (*PurchaseInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}

	invoice, err := utils.FetchModel[PurchaseInvoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceStatusConfirmed && invoice.Status != InvoiceStatusPartialPaid {
		return nil, errors.New("only confirmed invoices can receive payments")
	}

	invoice.PaidAmount = invoice.PaidAmount.Add(amount)
	if invoice.PaidAmount.GreaterThanOrEqual(invoice.TotalAmount) {
		invoice.Status = InvoiceStatusPaid
	} else {
		invoice.Status = InvoiceStatusPartialPaid
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func VoidPurchaseInvoice(ctx context.Context, id int) (*PurchaseInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	invoice, err := utils.FetchModel[PurchaseInvoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid || invoice.Status == InvoiceStatusPartialPaid {
		return nil, errors.New("paid invoices cannot be voided")
	}
	if invoice.Status == InvoiceStatusVoid {
		return nil, errors.New("invoice is already void")
	}

	invoice.Status = InvoiceStatusVoid
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetPurchaseInvoice(ctx context.Context, id int) (*PurchaseInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var invoice PurchaseInvoice
	err := db.WithContext(ctx).Preload("Details").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&invoice).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

func GetPurchaseInvoices(ctx context.Context, supplierName *string, status *InvoiceStatus, fromDate *MyDateString, toDate *MyDateString) ([]*PurchaseInvoice, error) {

	db := config.GetDB()
	var results []*PurchaseInvoice

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if supplierName != nil && len(*supplierName) > 0 {
		dbCtx = dbCtx.Where("supplier_name = ?", *supplierName)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if fromDate != nil {
		if err := fromDate.StartOfDayUTCTime(""); err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("invoice_date >= ?", time.Time(*fromDate))
	}
	if toDate != nil {
		if err := toDate.EndOfDayUTCTime(""); err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("invoice_date <= ?", time.Time(*toDate))
	}
	err := dbCtx.Preload("Details").Order("invoice_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func purchaseDetailToLine(detail *PurchaseInvoiceDetail) *SchemeLine {
	return &SchemeLine{
		ItemCode:           detail.ItemCode,
		Name:               detail.Name,
		Qty:                detail.DetailQty,
		UnitRate:           detail.DetailUnitRate,
		NetAmount:          detail.DetailNetAmount,
		DiscountPercentage: detail.DiscountPercentage,
		AppliedScheme:      detail.AppliedScheme,
		IsFreeItem:         utils.DereferencePtr(detail.IsFreeItem),
	}
}

func lineToPurchaseDetail(line *SchemeLine, detail *PurchaseInvoiceDetail) {
	detail.ItemCode = line.ItemCode
	detail.Name = line.Name
	detail.DetailQty = line.Qty
	detail.DetailUnitRate = line.UnitRate
	detail.DetailNetAmount = line.NetAmount
	detail.DiscountPercentage = line.DiscountPercentage
	detail.AppliedScheme = line.AppliedScheme
	if line.IsFreeItem {
		detail.IsFreeItem = utils.NewTrue()
	} else {
		detail.IsFreeItem = utils.NewFalse()
	}
}
