package models

// Course is a catalog entry students can be associated with.
type Course struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code,omitempty" yaml:"code"`
}

// Chapter is a unit of course content shown in the chapter manager.
type Chapter struct {
	ID          ID     `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Duration    string `json:"duration" yaml:"duration"`
	Progress    int    `json:"progress" yaml:"progress"`
	Resources   string `json:"resources" yaml:"resources"`
}
