package bamboohr

// FieldMap names the API fields used in request payloads. Several of these
// are deployment-specific custom fields, so they are configuration rather
// than constants; the defaults match a stock BambooHR account.
type FieldMap struct {
	FirstName        string `yaml:"first_name"`
	LastName         string `yaml:"last_name"`
	WorkEmail        string `yaml:"work_email"`
	HireDate         string `yaml:"hire_date"`
	Status           string `yaml:"status"`
	JobTitle         string `yaml:"job_title"`
	Department       string `yaml:"department"`
	Division         string `yaml:"division"`
	Location         string `yaml:"location"`
	EmploymentStatus string `yaml:"employment_status"`
	Supervisor       string `yaml:"supervisor"`
}

func DefaultFieldMap() FieldMap {
	return FieldMap{
		FirstName:        "firstName",
		LastName:         "lastName",
		WorkEmail:        "workEmail",
		HireDate:         "hireDate",
		Status:           "status",
		JobTitle:         "jobTitle",
		Department:       "department",
		Division:         "division",
		Location:         "location",
		EmploymentStatus: "employmentStatus",
		Supervisor:       "supervisor",
	}
}
