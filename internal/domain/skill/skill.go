// Package skill models skills, role requirements and the user's learning records.
package skill

import (
	"fmt"
	"strings"
)

// Category groups skills loosely; it has no effect on scoring.
type Category string

const (
	Technical Category = "technical"
	Soft      Category = "soft"
	Domain    Category = "domain"
	Tool      Category = "tool"
	Language  Category = "language"
)

// ParseCategory accepts an empty string as "uncategorized".
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "", Technical, Soft, Domain, Tool, Language:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Skill is a node of the prerequisite graph.
type Skill struct {
	Name          string
	Category      Category
	Prerequisites []string
}

var knownCapitalizations = map[string]string{
	"python":       "Python",
	"javascript":   "JavaScript",
	"typescript":   "TypeScript",
	"react":        "React",
	"react.js":     "React",
	"reactjs":      "React",
	"vue":          "Vue.js",
	"vue.js":       "Vue.js",
	"angular":      "Angular",
	"node.js":      "Node.js",
	"nodejs":       "Node.js",
	"fastapi":      "FastAPI",
	"django":       "Django",
	"flask":        "Flask",
	"postgresql":   "PostgreSQL",
	"mysql":        "MySQL",
	"mongodb":      "MongoDB",
	"redis":        "Redis",
	"docker":       "Docker",
	"kubernetes":   "Kubernetes",
	"aws":          "AWS",
	"gcp":          "GCP",
	"azure":        "Azure",
	"git":          "Git",
	"graphql":      "GraphQL",
	"rest":         "REST",
	"sql":          "SQL",
	"html":         "HTML",
	"css":          "CSS",
	"rust":         "Rust",
	"go":           "Go",
	"golang":       "Go",
	"java":         "Java",
	"c++":          "C++",
	"c#":           "C#",
	"ruby":         "Ruby",
	"scala":        "Scala",
	"kafka":        "Apache Kafka",
	"apache kafka": "Apache Kafka",
	"spark":        "Apache Spark",
	"apache spark": "Apache Spark",
}

// Normalize trims name and applies the canonical spelling of well-known skills.
// Other names are returned trimmed but otherwise untouched.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if canon, ok := knownCapitalizations[strings.ToLower(name)]; ok {
		return canon
	}
	return name
}

// Key is the case-insensitive identity of a skill name.
func Key(name string) string {
	return strings.ToLower(Normalize(name))
}
