package scoring

import (
	"github.com/jonathan/competency-mapper/internal/types"
)

// Built-in profile names.
const (
	ProfileBlockV1    = "block-v1"
	ProfileAdaptiveV2 = "adaptive-v2"
	// DefaultProfile is used when no profile is configured.
	DefaultProfile = ProfileBlockV1
)

// DefaultDomains is the five-domain set the built-in tool tables refer to.
func DefaultDomains() []types.Domain {
	return []types.Domain{
		{ID: 1, Name: "Data Analysis & Visualization"},
		{ID: 2, Name: "Machine Learning Supervisé"},
		{ID: 3, Name: "Machine Learning Non Supervisé"},
		{ID: 4, Name: "NLP (Natural Language Processing)"},
		{ID: 5, Name: "Statistiques & Mathématiques"},
	}
}

var defaultSentinels = []string{"Aucun", "Aucune", "Aucune de ces tâches", "None"}

// defaultToolRelevance maps each questionnaire tool to the domains it evidences.
func defaultToolRelevance() map[string][]int {
	return map[string][]int{
		"Python (Pandas, NumPy)":        {1, 2, 3, 5},
		"SQL":                           {1},
		"Excel":                         {1},
		"Matplotlib / Seaborn":          {1},
		"Plotly":                        {1},
		"Tableau":                       {1},
		"Power BI":                      {1},
		"Scikit-learn":                  {2, 3},
		"XGBoost":                       {2},
		"LightGBM":                      {2},
		"TensorFlow / Keras":            {2, 4},
		"PyTorch":                       {2, 4},
		"Scikit-learn (KMeans, PCA)":    {3},
		"UMAP":                          {3},
		"t-SNE":                         {3},
		"NLTK":                          {4},
		"spaCy":                         {4},
		"Transformers (Hugging Face)":   {4},
		"BERT / GPT":                    {4},
		"Sentence-Transformers (SBERT)": {4},
		"NumPy":                         {1, 2, 3, 5},
		"SciPy":                         {5},
		"Statsmodels":                   {5},
		"R / RStudio":                   {5},
	}
}

// defaultToolKeywords lists the words or phrases that name each tool in free
// text. Ambiguous French words ("tableau", "excellent") are avoided.
func defaultToolKeywords() map[string][]string {
	return map[string][]string{
		"Python (Pandas, NumPy)":        {"pandas", "numpy", "python"},
		"SQL":                           {"sql", "mysql", "postgresql"},
		"Excel":                         {"excel", "sheets"},
		"Matplotlib / Seaborn":          {"matplotlib", "seaborn"},
		"Plotly":                        {"plotly"},
		"Tableau":                       {"tableau software", "tableau desktop", "tableau public", "tableau server"},
		"Power BI":                      {"power bi", "powerbi"},
		"Scikit-learn":                  {"scikit", "sklearn"},
		"XGBoost":                       {"xgboost", "xgb"},
		"LightGBM":                      {"lightgbm", "lgbm"},
		"TensorFlow / Keras":            {"tensorflow", "keras"},
		"PyTorch":                       {"pytorch", "torch"},
		"Scikit-learn (KMeans, PCA)":    {"kmeans", "pca", "clustering"},
		"UMAP":                          {"umap"},
		"t-SNE":                         {"tsne", "t-sne"},
		"NLTK":                          {"nltk"},
		"spaCy":                         {"spacy"},
		"Transformers (Hugging Face)":   {"transformers", "hugging face", "bert", "gpt"},
		"BERT / GPT":                    {"bert", "gpt"},
		"Sentence-Transformers (SBERT)": {"sbert", "sentence transformers"},
		"NumPy":                         {"numpy"},
		"SciPy":                         {"scipy"},
		"Statsmodels":                   {"statsmodels"},
		"R / RStudio":                   {"rstudio", "r"},
	}
}

// BuiltinProfiles returns fresh copies of the two shipped weighting schemes.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:      ProfileBlockV1,
			Version:   "1",
			Weights:   Weights{Semantic: 0.40, SelfRating: 0.25, Checklist: 0.20, Tools: 0.15},
			Threshold: 0.3,
			TopN:      10,
			Sentinels: append([]string(nil), defaultSentinels...),
			Tools: ToolSettings{
				Denominator:        DenominatorFixed,
				Expected:           6,
				CountUnmappedTools: true,
			},
			Checklist: ChecklistSettings{
				Mode:            types.ChecklistCount,
				Denominator:     10,
				MinWords:        20,
				FullLengthWords: 50,
				TopN:            5,
				SemanticShare:   0.7,
			},
		},
		{
			Name:      ProfileAdaptiveV2,
			Version:   "2",
			Weights:   Weights{Semantic: 0.40, SelfRating: 0.30, Tools: 0.20, Checklist: 0.10},
			Threshold: 0.3,
			TopN:      10,
			Sentinels: append([]string(nil), defaultSentinels...),
			Tools: ToolSettings{
				Denominator: DenominatorPerDomain,
				Expected:    5,
				PerDomain:   map[int]float64{1: 7, 2: 5, 3: 3, 4: 5, 5: 4},
				Relevance:   defaultToolRelevance(),
				// idle unless a profile file sets detect_in_text
				Keywords: defaultToolKeywords(),
			},
			Checklist: ChecklistSettings{
				Mode:            types.ChecklistNarrative,
				Denominator:     10,
				MinWords:        20,
				FullLengthWords: 50,
				TopN:            5,
				SemanticShare:   0.7,
			},
		},
	}
}
