package service

import (
	"strings"

	"github.com/rx-safety-engine/internal/domain"
)

// ClassClassifier assigns drug names to classes of a static table using a
// NameMatcher. The table order is significant: Classify returns ids in table
// order and FirstClass returns the earliest match.
type ClassClassifier struct {
	matcher domain.NameMatcher
	classes []domain.TherapeuticClass
	byID    map[string]int
}

// NewClassClassifier creates a classifier over classes. A nil matcher
// defaults to SubstringMatcher.
func NewClassClassifier(classes []domain.TherapeuticClass, matcher domain.NameMatcher) *ClassClassifier {
	if matcher == nil {
		matcher = SubstringMatcher{}
	}
	byID := make(map[string]int, len(classes))
	for i, class := range classes {
		byID[class.ID] = i
	}
	return &ClassClassifier{
		matcher: matcher,
		classes: classes,
		byID:    byID,
	}
}

// NewInteractionClassifier classifies against the interaction-pattern classes.
func NewInteractionClassifier(matcher domain.NameMatcher) *ClassClassifier {
	return NewClassClassifier(interactionClasses, matcher)
}

// NewTherapeuticClassifier classifies against the therapeutic equivalence groups.
func NewTherapeuticClassifier(matcher domain.NameMatcher) *ClassClassifier {
	return NewClassClassifier(therapeuticGroups, matcher)
}

// Classify returns the id of every class with a member matching name.
func (c *ClassClassifier) Classify(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var ids []string
	for _, class := range c.classes {
		if c.memberOf(name, class) {
			ids = append(ids, class.ID)
		}
	}
	return ids
}

// FirstClass returns the first class with a member matching name.
func (c *ClassClassifier) FirstClass(name string) (domain.TherapeuticClass, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.TherapeuticClass{}, false
	}
	for _, class := range c.classes {
		if c.memberOf(name, class) {
			return class, true
		}
	}
	return domain.TherapeuticClass{}, false
}

// Class returns the class with the given id.
func (c *ClassClassifier) Class(id string) (domain.TherapeuticClass, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.TherapeuticClass{}, false
	}
	return c.classes[i], true
}

// Classes returns the table in order. Callers must not modify it.
func (c *ClassClassifier) Classes() []domain.TherapeuticClass {
	return c.classes
}

func (c *ClassClassifier) memberOf(name string, class domain.TherapeuticClass) bool {
	for _, member := range class.Members {
		if c.matcher.Match(name, member) {
			return true
		}
	}
	return false
}
