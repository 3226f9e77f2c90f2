package report

import "time"

type (
	// Person is one staff member line in the general report.
	Person struct {
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}

	// General aggregates staffing and attendance figures across the whole
	// ministry. Month buckets are calendar months, oldest first.
	General struct {
		People               []Person       `json:"people"`
		TotalCoordinators    int            `json:"total_coordenadoras"`
		TotalCollaborators   int            `json:"total_colaboradoras"`
		ByGroup              map[string]int `json:"by_group"`
		AveragePresenceMonth float64        `json:"average_presence_month"`
		AveragePresenceYear  float64        `json:"average_presence_year"`
		Last3MonthsCounts    []int          `json:"last_3_months_counts"`
		Last12MonthsAvg      []float64      `json:"last_12_months_avg"`
	}

	// PresenceLine is one attendance row of a session report.
	PresenceLine struct {
		ChildName        string     `json:"child_name"`
		GuardianNameDay  string     `json:"guardian_name_day"`
		GuardianPhoneDay string     `json:"guardian_phone_day"`
		EntryAt          time.Time  `json:"entry_at"`
		ExitAt           *time.Time `json:"exit_at"`
	}

	// Session details a single day's session with its staff and every
	// attendance row.
	Session struct {
		EbiID           string         `json:"ebi_id"`
		EbiDate         string         `json:"ebi_date"`
		GroupNumber     int            `json:"group_number"`
		CoordinatorName string         `json:"coordinator_name"`
		Collaborators   []string       `json:"collaborators"`
		Presences       []PresenceLine `json:"presences"`
	}
)
