package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Customer types on orders.
const (
	CustomerEmployer  = "employer"
	CustomerJobSeeker = "job_seeker"
)

// Product is a purchasable plan. Its flags grant capabilities to the buyer.
type Product struct {
	ID                   string          `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Type                 string          `po:"type,varchar(50),notNull"`
	Name                 string          `po:"name,varchar(255),notNull"`
	Description          string          `po:"description,text,notNull"`
	Price                decimal.Decimal `po:"price,numeric(10,2),notNull"`
	PriceDuration        *string         `po:"price_duration,varchar(50)"`
	Recurring            *bool           `po:"recurring,boolean,notNull,default(false)"`
	CanPostJobs          int             `po:"can_post_jobs,integer,notNull,default(0)"`
	FeaturedEmployer     *bool           `po:"featured_employer,boolean,notNull,default(false)"`
	ResumeAccess         *bool           `po:"resume_access,boolean,notNull,default(false)"`
	CanPostResumes       *bool           `po:"can_post_resumes,boolean,notNull,default(false)"`
	JobAccess            *bool           `po:"job_access,boolean,notNull,default(false)"`
	AssignOnRegistration *bool           `po:"assign_on_registration,boolean,notNull,default(false)"`
	Active               *bool           `po:"active,boolean,notNull,default(true)"`
	CreatedAt            time.Time       `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt            time.Time       `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	Orders               []Order         `po:"-,hasMany,foreignKey(product_id)"`
}

func (Product) TableName() string { return "products" }

type ProductUpdate struct {
	Type                 *string          `po:"type"`
	Name                 *string          `po:"name"`
	Description          *string          `po:"description"`
	Price                *decimal.Decimal `po:"price"`
	PriceDuration        *string          `po:"price_duration"`
	Recurring            *bool            `po:"recurring"`
	CanPostJobs          *int             `po:"can_post_jobs"`
	FeaturedEmployer     *bool            `po:"featured_employer"`
	ResumeAccess         *bool            `po:"resume_access"`
	CanPostResumes       *bool            `po:"can_post_resumes"`
	JobAccess            *bool            `po:"job_access"`
	AssignOnRegistration *bool            `po:"assign_on_registration"`
	Active               *bool            `po:"active"`
}

// Order records the purchase of one product. Products with orders cannot
// be deleted.
type Order struct {
	ID            string          `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	InvoiceNumber int             `po:"invoice_number,serial,unique,notNull"`
	CustomerType  string          `po:"customer_type,varchar(20),notNull"`
	CustomerID    *string         `po:"customer_id,uuid"`
	CustomerName  string          `po:"customer_name,varchar(255),notNull"`
	CustomerEmail *string         `po:"customer_email,varchar(320)"`
	ProductID     string          `po:"product_id,uuid,notNull,index,fk(products.id),onDelete(restrict)"`
	Total         decimal.Decimal `po:"total,numeric(10,2),notNull"`
	PaymentMethod *string         `po:"payment_method,varchar(50)"`
	Status        string          `po:"status,varchar(20),notNull,default('pending')"`
	CreatedAt     time.Time       `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt     time.Time       `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	Product       *Product        `po:"-,belongsTo,foreignKey(product_id)"`
}

func (Order) TableName() string { return "orders" }

type OrderUpdate struct {
	CustomerType  *string          `po:"customer_type"`
	CustomerID    *string          `po:"customer_id"`
	CustomerName  *string          `po:"customer_name"`
	CustomerEmail *string          `po:"customer_email"`
	ProductID     *string          `po:"product_id"`
	Total         *decimal.Decimal `po:"total"`
	PaymentMethod *string          `po:"payment_method"`
	Status        *string          `po:"status"`
}

// Discount is a redeemable code. MaxUses 0 means unlimited.
type Discount struct {
	ID        string          `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Code      string          `po:"code,varchar(50),unique,notNull"`
	Type      string          `po:"type,varchar(20),notNull"`
	Value     decimal.Decimal `po:"value,numeric(10,2),notNull"`
	MaxUses   int             `po:"max_uses,integer,notNull,default(0)"`
	UsedCount int             `po:"used_count,integer,notNull,default(0)"`
	StartsAt  time.Time       `po:"starts_at,timestamptz,notNull,default(now())"`
	ExpiresAt *time.Time      `po:"expires_at,timestamptz"`
	Active    *bool           `po:"active,boolean,notNull,default(true)"`
	CreatedAt time.Time       `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt time.Time       `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
}

func (Discount) TableName() string { return "discounts" }

// Exhausted reports whether a limited discount has been fully used.
func (d Discount) Exhausted() bool {
	return d.MaxUses > 0 && d.UsedCount >= d.MaxUses
}

// DiscountUpdate changes a discount. Redeem atomically adds to used_count.
type DiscountUpdate struct {
	Code      *string          `po:"code"`
	Type      *string          `po:"type"`
	Value     *decimal.Decimal `po:"value"`
	MaxUses   *int             `po:"max_uses"`
	StartsAt  *time.Time       `po:"starts_at"`
	ExpiresAt *time.Time       `po:"expires_at"`
	Active    *bool            `po:"active"`
	Redeem    *int             `po:"used_count,increment"`
}

// StoreSetting is a key/value configuration entry for the storefront.
type StoreSetting struct {
	ID    string `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Key   string `po:"key,varchar(100),unique,notNull"`
	Value string `po:"value,text,notNull"`
}

func (StoreSetting) TableName() string { return "store_settings" }

type StoreSettingUpdate struct {
	Key   *string `po:"key"`
	Value *string `po:"value"`
}
