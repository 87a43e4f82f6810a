package report

// sampleRecords is the illustrative data shown before a trainer has picked a client and a date range.
func sampleRecords() []RawRecord {
	return []RawRecord{
		{
			Title: TitleTrainingTypes,
			Counts: []Count{
				{ID: "strength", Count: 6},
				{ID: "cardio", Count: 4},
				{ID: "crossfit", Count: 2},
			},
		},
		{
			Title: TitleExercises,
			Counts: []Count{
				{ID: "Back squat", Count: 5},
				{ID: "Bench press", Count: 4},
				{ID: "Rowing", Count: 3},
				{ID: "Running", Count: 2},
				{ID: "Burpees", Count: 2},
			},
		},
		{
			Title: TitleStrength,
			Points: []Point{
				{Date: "2024-01-01", Values: map[string]float64{"Back squat": 80, "Bench press": 60}},
				{Date: "2024-01-08", Values: map[string]float64{"Back squat": 85, "Bench press": 62.5}},
				{Date: "2024-01-15", Values: map[string]float64{"Back squat": 87.5, "Bench press": 65}},
			},
		},
		{
			Title: TitleCardio,
			Points: []Point{
				{Date: "2024-01-02", Values: map[string]float64{"Running": 1, "totalEnergy": 420, "totalDistance": 6}},
				{Date: "2024-01-09", Values: map[string]float64{"Rowing": 2, "totalEnergy": 510, "totalDistance": 8}},
				{Date: "2024-01-16", Values: map[string]float64{"Running": 1, "Rowing": 1, "totalEnergy": 600,
					"totalDistance": 10}},
			},
		},
		{
			Title: TitleCrossfit,
			Points: []Point{
				{Date: "2024-01-03", Values: map[string]float64{"Burpees": 3, "totalRepeats": 60, "totalWeight": 0}},
				{Date: "2024-01-10", Values: map[string]float64{"Burpees": 2, "Kettlebell swing": 3,
					"totalRepeats": 90, "totalWeight": 1440}},
			},
		},
	}
}

// Placeholder returns a fresh sample dataset for chart c.
func Placeholder(c Chart) *Dataset {
	return Classify(sampleRecords()).Get(c)
}
