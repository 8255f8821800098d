package resolver

// Canonical section group keys
const (
	GroupHeader              = "header"
	GroupProfessionalSummary = "professional summary"
	GroupWorkExperience      = "work experience"
	GroupEducation           = "education"
	GroupSkills              = "skills"
	GroupClients             = "clients"
	GroupInterests           = "interests"
	GroupReferences          = "references"
	GroupCertifications      = "certifications"
	GroupProjects            = "projects"
)

// aliasGroup ties a canonical key to the display names it is known by
type aliasGroup struct {
	canonical string
	aliases   []string
}

// sectionAliases is consulted in order; the first group containing the target wins.
var sectionAliases = []aliasGroup{
	{canonical: GroupHeader, aliases: []string{"HEADER", "Contact Info", "Contact Information", "Contact Details", "Personal Information"}},
	{canonical: GroupProfessionalSummary, aliases: []string{"PROFESSIONAL SUMMARY", "Summary", "Profile", "Professional Profile", "Career Summary", "About Me", "Objective"}},
	{canonical: GroupWorkExperience, aliases: []string{"EXPERIENCE", "Work Experience", "Employment", "Experience", "Work History", "Professional Experience", "Employment History", "Career History"}},
	{canonical: GroupEducation, aliases: []string{"EDUCATION", "Education", "Academic Background", "Qualifications", "Education and Training"}},
	{canonical: GroupSkills, aliases: []string{"SKILLS", "Skills", "Key Skills", "Technical Skills", "Core Competencies", "Competencies"}},
	{canonical: GroupClients, aliases: []string{"CLIENTS", "Clients", "Key Clients", "Selected Clients"}},
	{canonical: GroupInterests, aliases: []string{"INTERESTS", "Interests", "Hobbies", "Hobbies and Interests"}},
	{canonical: GroupReferences, aliases: []string{"REFERENCES", "References", "Referees"}},
	{canonical: GroupCertifications, aliases: []string{"CERTIFICATIONS", "Certifications", "Certificates", "Licenses and Certifications"}},
	{canonical: GroupProjects, aliases: []string{"PROJECTS", "Projects", "Key Projects", "Selected Projects"}},
}
