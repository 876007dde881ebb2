package pages

// BackgroundSurvey is the first questionnaire. Q8 is the attention check.
type BackgroundSurvey struct {
	Q1Age              string   `json:"q1_age" binding:"notblank"`
	Q2Gender           string   `json:"q2_gender" binding:"notblank"`
	Q3Education        string   `json:"q3_education" binding:"notblank"`
	Q4Occupation       string   `json:"q4_occupation"`
	Q5SearchFrequency  Scale    `json:"q5_search_frequency"`
	Q6SearchConfidence Scale    `json:"q6_search_confidence"`
	Q7Devices          []string `json:"q7_devices"`
	Q8AttentionCheck   Scale    `json:"q8_attention_check"`
	Q9OnlineShopping   Scale    `json:"q9_online_shopping"`
	Q10PriorKnowledge  Scale    `json:"q10_prior_knowledge"`
}

func (*BackgroundSurvey) PageID() PageID { return BackgroundSurveyPage }

// TaskInstruction records that the participant read the task brief.
type TaskInstruction struct {
	Acknowledged        bool   `json:"acknowledged"`
	ComprehensionAnswer string `json:"comprehension_answer"`
	ReadingSeconds      Scale  `json:"reading_seconds"`
}

func (*TaskInstruction) PageID() PageID { return TaskInstructionPage }

// SearchTask holds scratch notes taken while searching.
type SearchTask struct {
	Notes string `json:"notes"`
}

func (*SearchTask) PageID() PageID { return SearchTaskPage }

// ResultLog is the participant's findings, q11..q15.
type ResultLog struct {
	Q11BestOption string   `json:"q11_best_option" binding:"notblank"`
	Q12OptionURL  string   `json:"q12_option_url" binding:"max=2048"`
	Q13Sources    []string `json:"q13_sources"`
	Q14Confidence Scale    `json:"q14_confidence"`
	Q15Rationale  string   `json:"q15_rationale"`
}

func (*ResultLog) PageID() PageID { return ResultLogPage }

// PostTaskSurvey is the closing questionnaire, q16..q23.
type PostTaskSurvey struct {
	Q16Satisfaction Scale  `json:"q16_satisfaction"`
	Q17Ease         Scale  `json:"q17_ease"`
	Q18Confidence   Scale  `json:"q18_confidence"`
	Q19Trust        Scale  `json:"q19_trust"`
	Q20Effort       Scale  `json:"q20_effort"`
	Q21Workload     Scale  `json:"q21_workload"`
	Q22Strategy     string `json:"q22_strategy"`
	Q23Feedback     string `json:"q23_feedback"`
}

func (*PostTaskSurvey) PageID() PageID { return PostTaskSurveyPage }

// FinalDecision is the last screen.
type FinalDecision struct {
	Decision   string `json:"decision"`
	Confidence Scale  `json:"confidence"`
	Rationale  string `json:"rationale"`
}

func (*FinalDecision) PageID() PageID { return FinalDecisionPage }
