package models

import "time"

// Administrator is a back-office user.
type Administrator struct {
	ID           string    `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Username     string    `po:"username,varchar(100),unique,notNull"`
	PasswordHash string    `po:"password_hash,text,notNull"`
	Email        string    `po:"email,varchar(320),unique,notNull"`
	CreatedAt    time.Time `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt    time.Time `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
}

func (Administrator) TableName() string { return "administrators" }

type AdministratorUpdate struct {
	Username     *string `po:"username"`
	PasswordHash *string `po:"password_hash"`
	Email        *string `po:"email"`
}
