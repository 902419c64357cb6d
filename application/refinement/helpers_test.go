package refinement

import "jdbuilder/domain/jd"

func boolPtr(b bool) *bool {
	return &b
}

func testDocument() *jd.Document {
	return &jd.Document{
		Summary: "Design support package",
		Roles: []jd.Role{
			{
				Title:            "Graphic Designer",
				Responsibilities: []string{"Produce social assets", "Maintain brand kit"},
				Skills:           []string{"Typography", "Layout"},
				Tools:            []string{"Figma", "Canva"},
				KPIs:             []string{"Turnaround under 48h"},
				SampleWeek:       map[string]string{"monday": "Briefs and kickoff"},
			},
		},
		ServiceRecommendation: &jd.ServiceRecommendation{
			BestFit:   "dedicated",
			Reasoning: "Sustained weekly volume",
		},
		Onboarding2W: &jd.OnboardingPlan{
			WeekOne: []string{"Tool access"},
			WeekTwo: []string{"First solo deliverable"},
		},
	}
}
