package models

import "time"

// Job types and application methods.
const (
	JobTypeFullTime   = "full_time"
	JobTypePartTime   = "part_time"
	JobTypeContract   = "contract"
	JobTypeInternship = "internship"

	ApplyByEmail = "email"
	ApplyByURL   = "url"
)

// Employer posts jobs and buys products.
type Employer struct {
	ID                 string       `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Email              string       `po:"email,varchar(320),unique,notNull"`
	ContactName        string       `po:"contact_name,varchar(255),notNull"`
	Phone              string       `po:"phone,varchar(50),notNull"`
	Location           string       `po:"location,varchar(255),notNull"`
	PasswordHash       string       `po:"password_hash,text,notNull"`
	CompanyName        string       `po:"company_name,varchar(255),notNull"`
	Website            string       `po:"website,varchar(255),notNull"`
	LogoURL            *string      `po:"logo_url,text"`
	CompanyDescription *string      `po:"company_description,text"`
	CreatedAt          time.Time    `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt          time.Time    `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	Postings           []JobPosting `po:"-,hasMany,foreignKey(employer_id)"`
}

func (Employer) TableName() string { return "employers" }

type EmployerUpdate struct {
	Email              *string `po:"email"`
	ContactName        *string `po:"contact_name"`
	Phone              *string `po:"phone"`
	Location           *string `po:"location"`
	PasswordHash       *string `po:"password_hash"`
	CompanyName        *string `po:"company_name"`
	Website            *string `po:"website"`
	LogoURL            *string `po:"logo_url"`
	CompanyDescription *string `po:"company_description"`
}

// JobPosting is a job advertised by an employer.
type JobPosting struct {
	ID                string     `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Title             string     `po:"title,varchar(255),notNull"`
	EmployerID        string     `po:"employer_id,uuid,notNull,index"`
	ProductID         *string    `po:"product_id,uuid"`
	Description       string     `po:"description,text,notNull"`
	JobType           string     `po:"job_type,varchar(50),notNull"`
	Categories        []string   `po:"categories,text[],notNull,default('{}')"`
	Location          string     `po:"location,varchar(255),notNull"`
	SalaryMin         *int       `po:"salary_min,integer"`
	SalaryMax         *int       `po:"salary_max,integer"`
	SalaryFrequency   *string    `po:"salary_frequency,varchar(20)"`
	ApplicationMethod string     `po:"application_method,varchar(20),notNull"`
	ApplicationValue  string     `po:"application_value,text,notNull"`
	Featured          *bool      `po:"featured,boolean,notNull,default(false)"`
	Status            string     `po:"status,varchar(20),notNull,default('active'),index"`
	Views             int        `po:"views,integer,notNull,default(0)"`
	Applications      int        `po:"applications,integer,notNull,default(0)"`
	PostedBy          string     `po:"posted_by,uuid,notNull"`
	PostedAt          time.Time  `po:"posted_at,timestamptz,notNull,default(now())"`
	ExpiresAt         *time.Time `po:"expires_at,timestamptz"`
	CreatedAt         time.Time  `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt         time.Time  `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	Employer          *Employer  `po:"-,belongsTo,foreignKey(employer_id)"`
}

func (JobPosting) TableName() string { return "job_postings" }

// JobPostingUpdate changes a posting. AddViews and AddApplications are
// atomic increments.
type JobPostingUpdate struct {
	Title             *string    `po:"title"`
	ProductID         *string    `po:"product_id"`
	Description       *string    `po:"description"`
	JobType           *string    `po:"job_type"`
	Categories        []string   `po:"categories"`
	Location          *string    `po:"location"`
	SalaryMin         *int       `po:"salary_min"`
	SalaryMax         *int       `po:"salary_max"`
	SalaryFrequency   *string    `po:"salary_frequency"`
	ApplicationMethod *string    `po:"application_method"`
	ApplicationValue  *string    `po:"application_value"`
	Featured          *bool      `po:"featured"`
	Status            *string    `po:"status"`
	ExpiresAt         *time.Time `po:"expires_at"`
	AddViews          *int       `po:"views,increment"`
	AddApplications   *int       `po:"applications,increment"`
}

// JobSeeker is a candidate account. It owns its résumés.
type JobSeeker struct {
	ID           string    `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	Email        string    `po:"email,varchar(320),unique,notNull"`
	PasswordHash string    `po:"password_hash,text,notNull"`
	FirstName    string    `po:"first_name,varchar(100),notNull"`
	LastName     string    `po:"last_name,varchar(100),notNull"`
	Phone        *string   `po:"phone,varchar(50)"`
	Location     *string   `po:"location,varchar(255)"`
	CreatedAt    time.Time `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt    time.Time `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	Resumes      []Resume  `po:"-,hasMany,foreignKey(job_seeker_id)"`
}

func (JobSeeker) TableName() string { return "job_seekers" }

type JobSeekerUpdate struct {
	Email        *string `po:"email"`
	PasswordHash *string `po:"password_hash"`
	FirstName    *string `po:"first_name"`
	LastName     *string `po:"last_name"`
	Phone        *string `po:"phone"`
	Location     *string `po:"location"`
}

// Resume belongs to exactly one job seeker and is deleted with it.
type Resume struct {
	ID             string     `po:"id,primaryKey,uuid,autoUUID,default(gen_random_uuid())"`
	JobSeekerID    string     `po:"job_seeker_id,uuid,notNull,index,fk(job_seekers.id),onDelete(cascade)"`
	FileURL        *string    `po:"file_url,text"`
	DesiredTitle   string     `po:"desired_title,varchar(255),notNull"`
	JobType        string     `po:"job_type,varchar(50),notNull"`
	Categories     []string   `po:"categories,text[],notNull,default('{}')"`
	Summary        string     `po:"summary,text,notNull"`
	Location       string     `po:"location,varchar(255),notNull"`
	Phone          string     `po:"phone,varchar(50),notNull"`
	Visible        *bool      `po:"visible,boolean,notNull,default(true)"`
	WorkExperience *string    `po:"work_experience,text"`
	Education      *string    `po:"education,text"`
	Views          int        `po:"views,integer,notNull,default(0)"`
	Status         string     `po:"status,varchar(20),notNull,default('active')"`
	CreatedAt      time.Time  `po:"created_at,timestamptz,notNull,default(now())"`
	UpdatedAt      time.Time  `po:"updated_at,timestamptz,notNull,default(now()),autoUpdate"`
	JobSeeker      *JobSeeker `po:"-,belongsTo,foreignKey(job_seeker_id)"`
}

func (Resume) TableName() string { return "resumes" }

type ResumeUpdate struct {
	FileURL        *string  `po:"file_url"`
	DesiredTitle   *string  `po:"desired_title"`
	JobType        *string  `po:"job_type"`
	Categories     []string `po:"categories"`
	Summary        *string  `po:"summary"`
	Location       *string  `po:"location"`
	Phone          *string  `po:"phone"`
	Visible        *bool    `po:"visible"`
	WorkExperience *string  `po:"work_experience"`
	Education      *string  `po:"education"`
	Status         *string  `po:"status"`
	AddViews       *int     `po:"views,increment"`
}
