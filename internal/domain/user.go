package domain

type Role string

const (
	RoleCustomer    Role = "customer"
	RoleDistributor Role = "distributor"
	RoleAdmin       Role = "admin"
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) IsDistributor() bool {
	return u.Role == RoleDistributor
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DistributorRegistration struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PANNumber     string `json:"pan_number"`
	Password      string `json:"password"`
}
