package pkg

import "strconv"

func fourPointScale() []ScaleOption {
	return []ScaleOption{
		{Label: "Not at all", Value: 0},
		{Label: "Several days", Value: 1},
		{Label: "More than half the days", Value: 2},
		{Label: "Nearly every day", Value: 3},
	}
}

func fivePointScale() []ScaleOption {
	return []ScaleOption{
		{Label: "Not at all", Value: 0},
		{Label: "A little bit", Value: 1},
		{Label: "Moderately", Value: 2},
		{Label: "Quite a bit", Value: 3},
		{Label: "Extremely", Value: 4},
	}
}

var phq9Questions = []string{
	"Little interest or pleasure in doing things",
	"Feeling down, depressed, or hopeless",
	"Trouble falling/staying asleep, sleeping too much",
	"Feeling tired or having little energy",
	"Poor appetite or overeating",
	"Feeling bad about yourself - or that you are a failure or have let yourself or your family down",
	"Trouble concentrating on things, such as reading the newspaper or watching television",
	"Moving or speaking so slowly that other people could have noticed. Or the opposite - being so fidgety or restless that you have been moving around a lot more than usual",
	"Thoughts that you would be better off dead, or of hurting yourself",
}

var gad7Questions = []string{
	"Feeling nervous, anxious, or on edge",
	"Not being able to stop or control worrying",
	"Worrying too much about different things",
	"Trouble relaxing",
	"Being so restless that it is hard to sit still",
	"Becoming easily annoyed or irritable",
	"Feeling afraid as if something awful might happen",
}

// pcl5Questions pairs each checklist item with its DSM-5 criterion.
var pcl5Questions = []struct {
	Text      string
	Criterion string
}{
	{"Repeated, disturbing, and unwanted memories of the stressful experience?", "B"},
	{"Repeated, disturbing dreams of the stressful experience?", "B"},
	{"Suddenly feeling or acting as if the stressful experience were actually happening again?", "B"},
	{"Feeling very upset when something reminded you of the stressful experience?", "B"},
	{"Having strong physical reactions when something reminded you of the stressful experience (e.g., heart pounding, sweating)?", "B"},
	{"Avoiding memories, thoughts, or feelings related to the stressful experience?", "C"},
	{"Avoiding external reminders of the stressful experience (e.g., people, places, situations)?", "C"},
	{"Trouble remembering important parts of the stressful experience?", "D"},
	{"Having strong negative beliefs about yourself, other people, or the world?", "D"},
	{"Blaming yourself or someone else for the stressful experience or for what happened after it?", "D"},
	{"Having strong negative feelings such as fear, horror, anger, guilt, or shame?", "D"},
	{"Loss of interest in activities that you used to enjoy?", "D"},
	{"Feeling distant or cut off from other people?", "D"},
	{"Trouble experiencing positive feelings (e.g., happiness, loving feelings)?", "D"},
	{"Irritable behavior, angry outbursts, or acting aggressively?", "E"},
	{"Taking too many risks or doing things that could cause you harm?", "E"},
	{"Being \"superalert\" or watchful or on guard?", "E"},
	{"Feeling jumpy or easily startled?", "E"},
	{"Having difficulty concentrating?", "E"},
	{"Trouble falling or staying asleep?", "E"},
}

// DefaultPHQ9 returns a fresh PHQ-9 with no answers selected.
func DefaultPHQ9() *PHQ9Data {
	d := &PHQ9Data{Questions: make([]ScaleQuestion, len(phq9Questions))}
	for i, text := range phq9Questions {
		d.Questions[i] = ScaleQuestion{
			ID:      "phq9-q" + strconv.Itoa(i),
			Text:    text,
			Options: fourPointScale(),
		}
	}
	return d
}

// DefaultGAD7 returns a fresh GAD-7 with no answers selected.
func DefaultGAD7() *GAD7Data {
	d := &GAD7Data{Questions: make([]ScaleQuestion, len(gad7Questions))}
	for i, text := range gad7Questions {
		d.Questions[i] = ScaleQuestion{
			ID:      "gad7-q" + strconv.Itoa(i),
			Text:    text,
			Options: fourPointScale(),
		}
	}
	return d
}

// DefaultPCL5 returns a fresh PCL-5 with no answers selected.  Criterion
// A is assumed met for the screener.
func DefaultPCL5() *PCL5Data {
	d := &PCL5Data{
		Questions:              make([]ScaleQuestion, len(pcl5Questions)),
		DSM5Criteria:           DSM5Criteria{A: true},
		SeverityInterpretation: "Not yet assessed",
	}
	for i, q := range pcl5Questions {
		d.Questions[i] = ScaleQuestion{
			ID:        "pcl5-q" + strconv.Itoa(i),
			Text:      q.Text,
			Criterion: q.Criterion,
			Options:   fivePointScale(),
		}
	}
	return d
}

func defaultMSESection() *MSESection {
	return &MSESection{
		SelectedOptions: map[string][]string{},
		Checkboxes:      map[string]bool{},
		Analysis:        MSEAnalysis{Keywords: []string{}, RedFlags: []string{}},
	}
}

// DefaultMSE returns a fresh mental status exam with every section
// present and the orientation and SI/HI checkbox groups pre-seeded.
func DefaultMSE() *MSEData {
	d := &MSEData{
		Sections:      make(map[string]*MSESection, len(MSESectionKeys)),
		StatusMessage: "Please fill out the MSE sections. AI analysis can be requested per section or overall.",
	}
	for _, key := range MSESectionKeys {
		d.Sections[key] = defaultMSESection()
	}
	d.Sections["cognition"].Checkboxes = map[string]bool{
		"orientationTime":      false,
		"orientationPlace":     false,
		"orientationPerson":    false,
		"orientationSituation": false,
	}
	d.Sections["thoughtContent"].Checkboxes = map[string]bool{
		"siPlan": false, "siIntent": false, "siMeans": false,
		"hiPlan": false, "hiIntent": false, "hiMeans": false,
	}
	return d
}

// DefaultPersonalityTraits lists the Big Five dimensions used by the
// personality matrix.
func DefaultPersonalityTraits() []PersonalityTrait {
	return []PersonalityTrait{
		{ID: "openness", Name: "Openness to Experience", Description: "Reflects a person's willingness to try new things, be imaginative, and appreciate art and beauty.", LowAnchor: "Conventional", HighAnchor: "Imaginative"},
		{ID: "conscientiousness", Name: "Conscientiousness", Description: "Indicates how organized, dependable, and responsible a person is.", LowAnchor: "Spontaneous", HighAnchor: "Organized"},
		{ID: "extraversion", Name: "Extraversion", Description: "Measures how outgoing, sociable, and assertive a person is.", LowAnchor: "Introverted", HighAnchor: "Extraverted"},
		{ID: "agreeableness", Name: "Agreeableness", Description: "Shows how cooperative, empathetic, and kind a person tends to be.", LowAnchor: "Competitive", HighAnchor: "Cooperative"},
		{ID: "neuroticism", Name: "Neuroticism (Emotional Stability)", Description: "Assesses the tendency to experience negative emotions like anxiety, sadness, and irritability. Higher scores indicate more neuroticism (lower emotional stability).", LowAnchor: "Calm/Stable", HighAnchor: "Anxious/Reactive"},
	}
}

// DefaultPersonalityMatrix returns a fresh personality matrix.
func DefaultPersonalityMatrix() *PersonalityMatrixData {
	return &PersonalityMatrixData{
		Traits:            DefaultPersonalityTraits(),
		UserRatings:       map[string]int{},
		UserDescriptions:  map[string]string{},
		AIInterpretations: map[string]string{},
		StatusMessage:     `Please rate each trait and provide a brief description, then click "Get AI Analysis".`,
	}
}

// DefaultInterviewPrompts lists the guided interview questions in order.
func DefaultInterviewPrompts() []string {
	return []string{
		"Hello. To begin, can you tell me what brings you in or what's been on your mind lately?",
		"Could you elaborate on that a little more? How have these feelings or experiences been affecting you?",
		"Have you noticed any significant changes in your daily routines, like sleep, appetite, or energy levels?",
		"How has your mood been impacting your work, studies, or relationships with others?",
		"Are there any particular stressors or concerns in your life right now that you'd like to discuss?",
		"In the past few weeks, have you had any thoughts about harming yourself or others?",
		"Thank you for sharing this with me. We're nearing the end of our scheduled time. Is there anything else you feel is important to mention or anything you'd like to ask before we conclude?",
	}
}

// DefaultClinicalInterview returns a fresh interview workspace.
func DefaultClinicalInterview() *ClinicalInterviewData {
	return &ClinicalInterviewData{
		Prompts:         DefaultInterviewPrompts(),
		ConversationLog: []ConversationEntry{},
		StatusMessage:   "Interview not started. Click 'Start Interview' or select from main menu.",
	}
}

// DefaultReportGenerator returns a fresh report builder.
func DefaultReportGenerator() *ReportGeneratorData {
	return &ReportGeneratorData{
		SelectedAssessmentIDs: []string{},
		SelectedReportType:    "comprehensive",
		StatusMessage:         `Select assessments and report type, then click "Generate Report".`,
	}
}

// nnpaConfig describes the assessment's fixed domain and sub-scale
// catalog.  Descriptions feed the analysis prompts.
var nnpaConfig = []struct {
	ID, Name, Description string
	SubScales             []NNPASubScale
}{
	{
		ID: "realityOrientation", Name: "Reality Orientation and Perception",
		Description: "Assessing ability to distinguish between digital and physical reality, and nature of relationship with AI.",
		SubScales: []NNPASubScale{
			{ID: "anthropomorphization", Name: "Anthropomorphization Scale", Description: "Degree to which individual attributes human qualities to AI systems."},
			{ID: "realityBoundaries", Name: "Reality Boundaries Assessment", Description: "Ability to distinguish AI responses from human communication."},
			{ID: "parasocialRelationship", Name: "Parasocial Relationship Intensity", Description: "Emotional attachment to AI entities."},
			{ID: "digitalDissociation", Name: "Digital Dissociation Markers", Description: "Episodes of confusion between digital and physical interactions."},
		},
	},
	{
		ID: "cognitiveProcessing", Name: "Cognitive Processing Patterns",
		Description: "Evaluating thought patterns, beliefs, and behaviors related to digital technology and AI.",
		SubScales: []NNPASubScale{
			{ID: "aiDependency", Name: "AI Dependency Index", Description: "Reliance on AI for decision-making and emotional support."},
			{ID: "criticalThinking", Name: "Critical Thinking Assessment", Description: "Ability to evaluate AI-generated information critically."},
			{ID: "ruminationPatterns", Name: "Rumination Patterns (AI-related)", Description: "Obsessive thoughts about AI capabilities or threats."},
			{ID: "metacognitiveAwareness", Name: "Metacognitive Awareness (re: AI)", Description: "Understanding of one's own thinking processes regarding AI."},
		},
	},
	{
		ID: "behavioralIndicators", Name: "Behavioral Indicators",
		Description: "Measuring observable behaviors related to technology use and social interaction.",
		SubScales: []NNPASubScale{
			{ID: "digitalEngagement", Name: "Digital Engagement Patterns", Description: "Time allocation and compulsive usage behaviors with technology/AI."},
			{ID: "socialWithdrawal", Name: "Social Withdrawal Metrics", Description: "Preference for AI interaction over human contact."},
			{ID: "functionalImpairment", Name: "Functional Impairment Scale", Description: "Impact of technology/AI use on work, relationships, and daily activities."},
			{ID: "helpSeeking", Name: "Help-Seeking Behaviors", Description: "Willingness to discuss concerns about technology/AI use with professionals."},
		},
	},
	{
		ID: "emotionalRegulation", Name: "Emotional Regulation",
		Description: "Assessing emotional responses and identity in relation to AI systems.",
		SubScales: []NNPASubScale{
			{ID: "anxietyResponseAI", Name: "Anxiety Response to AI", Description: "Fear, paranoia, or excessive worry about AI systems."},
			{ID: "moodDependencyAI", Name: "Mood Dependency (on AI)", Description: "Emotional state influenced by AI interactions."},
			{ID: "identityIntegrationAI", Name: "Identity Integration (with AI)", Description: "Sense of self in relation to AI capabilities."},
			{ID: "emotionalAuthenticity", Name: "Emotional Authenticity (re: AI)", Description: "Distinguishing genuine emotions from AI-influenced responses."},
		},
	},
}

// DefaultNNPA returns a fresh NNPA with every configured domain and
// sub-scale present and empty clinician notes.
func DefaultNNPA() *NNPAData {
	d := &NNPAData{
		Domains:           make([]NNPADomain, len(nnpaConfig)),
		OverallAIAnalysis: NNPAOverall{RiskLevel: "Not Assessed"},
		StatusMessage:     "Enter observations for each sub-scale. Request AI analysis per domain, then overall.",
	}
	for i, cfg := range nnpaConfig {
		d.Domains[i] = NNPADomain{
			ID:          cfg.ID,
			Name:        cfg.Name,
			Description: cfg.Description,
			SubScales:   cloneSlice(cfg.SubScales),
		}
	}
	return d
}

// DefaultModuleSet returns the assessment set a new encounter starts
// with, every module populated with its default payload.
func DefaultModuleSet() ModuleSet {
	return ModuleSet{
		PHQ9:              DefaultPHQ9(),
		GAD7:              DefaultGAD7(),
		PCL5:              DefaultPCL5(),
		MSE:               DefaultMSE(),
		PersonalityMatrix: DefaultPersonalityMatrix(),
		ClinicalInterview: DefaultClinicalInterview(),
		ReportGenerator:   DefaultReportGenerator(),
		NNPA:              DefaultNNPA(),
	}
}
