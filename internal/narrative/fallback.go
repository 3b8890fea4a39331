package narrative

import "fmt"

const defaultJob = "Data Analyst"

const fallbackPlan = `## Plan de progression personnalisé

**Phase 1 : Renforcement des fondamentaux (mois 1-2)**
- Réviser les bases de Python et de l'analyse de données
- Pratiquer sur des jeux de données publics
- Suivre des tutoriels Pandas et NumPy

**Phase 2 : Développement des compétences techniques (mois 3-4)**
- Approfondir le Machine Learning supervisé
- Réaliser des projets pratiques
- Étudier les algorithmes avancés

**Phase 3 : Spécialisation et portfolio (mois 5-6)**
- Se spécialiser dans le domaine visé (%s)
- Construire un portfolio de projets
- Participer à des compétitions de data science

*Plan généré automatiquement. Consultez un mentor pour le personnaliser.*`

// Fallback returns the canned text used when no generated narrative is available.
func Fallback(kind Kind, d Digest) string {
	target := d.TargetJob
	if target == "" {
		target = defaultJob
	}
	if kind == KindBio {
		return fmt.Sprintf("Profil Data Science polyvalent avec un score de couverture de %s. "+
			"Compétences solides en analyse de données et modélisation. "+
			"Orienté %s avec une forte capacité d'adaptation et un potentiel de croissance élevé. "+
			"Prêt à relever de nouveaux défis dans l'écosystème data.", percent(d.Coverage), target)
	}
	return fmt.Sprintf(fallbackPlan, target)
}
