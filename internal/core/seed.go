package core

// SamplePatients returns the record the tracker starts with.
func SamplePatients() []Patient {
	return []Patient{
		{
			ID:        "p1",
			Name:      "Jane Doe",
			Contact:   "055-123-4567",
			StartDate: NewDate(2025, 8, 1),
			TotalFee:  Units(10000),
			Notes:     "Standard metal braces",
			Payments: []Payment{
				{ID: "t1", Date: NewDate(2025, 8, 5), Amount: Units(2000), Method: MobileMoney, Note: "Initial"},
				{ID: "t2", Date: NewDate(2025, 9, 1), Amount: Units(3000), Method: Cash, Note: "Monthly"},
			},
		},
	}
}
