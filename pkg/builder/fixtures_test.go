package builder

import (
	"time"

	"github.com/shopspring/decimal"
)

type Gadget struct {
	ID        string          `po:"id,primaryKey,uuid,autoUUID"`
	Name      string          `po:"name,varchar(100),unique,notNull"`
	Price     decimal.Decimal `po:"price,numeric(10,2),notNull"`
	Active    *bool           `po:"active,boolean,default(true)"`
	Stock     int             `po:"stock,integer,default(0)"`
	Tags      []string        `po:"tags,text[]"`
	CreatedAt time.Time       `po:"created_at,default(now()),notNull"`
	UpdatedAt time.Time       `po:"updated_at,default(now()),notNull,autoUpdate"`
	Parts     []Part          `po:"-,hasMany,foreignKey(gadget_id)"`
}

func (Gadget) TableName() string { return "gadgets" }

type Part struct {
	ID       int64   `po:"id,primaryKey,bigserial"`
	GadgetID string  `po:"gadget_id,uuid,notNull,fk(gadgets.id),onDelete(cascade)"`
	Label    string  `po:"label,text,notNull"`
	Gadget   *Gadget `po:"-,belongsTo,foreignKey(gadget_id)"`
}

func (Part) TableName() string { return "parts" }

type GadgetUpdate struct {
	Name   *string          `po:"name"`
	Price  *decimal.Decimal `po:"price"`
	Active *bool            `po:"active"`
	Stock  *int             `po:"stock,increment"`
}

func ptr[T any](v T) *T { return &v }
