package dto

// OrgChartNode is one staff member with their direct reports, sorted by name.
type OrgChartNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Title    string         `json:"title"`
	Email    string         `json:"email"`
	Children []OrgChartNode `json:"children"`
}
