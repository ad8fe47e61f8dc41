package model

import "strings"

// Language maps a form value to the executor's numeric language identifier.
type Language struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	JudgeID int    `json:"judge_id"`
}

// Languages is the fixed table offered on the join page, in display order.
var Languages = []Language{
	{Key: "python", Name: "Python", JudgeID: 71},
	{Key: "cpp", Name: "C++", JudgeID: 54},
	{Key: "java", Name: "Java", JudgeID: 62},
}

func LookupLanguage(key string) (Language, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, lang := range Languages {
		if lang.Key == key {
			return lang, true
		}
	}
	return Language{}, false
}
