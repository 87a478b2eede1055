package chat

// ProfileDTO is the profile payload both chat backends accept. Every list
// field is always non-nil and every string field defaults to empty, so
// callers never see a half-shaped profile.
type ProfileDTO struct {
	Name             string            `json:"name"`
	ContactInfo      ContactInfo       `json:"contact_info"`
	Interests        []string          `json:"interests"`
	Passions         []string          `json:"passions"`
	Hobbies          []string          `json:"hobbies"`
	Skills           []string          `json:"skills"`
	Bio              string            `json:"bio"`
	ProfileQuestions map[string]string `json:"profile_questions"`
	Age              string            `json:"age,omitempty"`
	Location         string            `json:"location,omitempty"`
	Birthday         string            `json:"birthday,omitempty"`
}

// ContactInfo carries the display name nested under contact info.
type ContactInfo struct {
	Name string `json:"name"`
}

// EmptyProfile returns a fully-defaulted profile.
func EmptyProfile() ProfileDTO {
	return ProfileDTO{
		Interests:        []string{},
		Passions:         []string{},
		Hobbies:          []string{},
		Skills:           []string{},
		ProfileQuestions: map[string]string{},
	}
}

// ResolveProfile maps loosely-shaped profile data onto a fully-typed
// ProfileDTO. The product backend stores profiles with optional and
// inconsistently nested fields; this is the single place that absorbs that.
// Name precedence: top-level "name", then "contact_info".name.
func ResolveProfile(src map[string]any) ProfileDTO {
	p := EmptyProfile()
	if src == nil {
		return p
	}

	p.Name = stringField(src, "name")
	if contact, ok := src["contact_info"].(map[string]any); ok {
		p.ContactInfo.Name = stringField(contact, "name")
	}
	if p.Name == "" {
		p.Name = p.ContactInfo.Name
	}
	if p.ContactInfo.Name == "" {
		p.ContactInfo.Name = p.Name
	}

	p.Interests = stringSlice(src, "interests")
	p.Passions = stringSlice(src, "passions")
	p.Hobbies = stringSlice(src, "hobbies")
	p.Skills = stringSlice(src, "skills")
	p.Bio = stringField(src, "bio")
	p.ProfileQuestions = stringMap(src, "profile_questions")
	p.Age = stringField(src, "age")
	p.Location = stringField(src, "location")
	p.Birthday = stringField(src, "birthday")

	return p
}

func stringField(src map[string]any, key string) string {
	if v, ok := src[key].(string); ok {
		return v
	}
	return ""
}

func stringSlice(src map[string]any, key string) []string {
	out := []string{}
	items, ok := src[key].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMap(src map[string]any, key string) map[string]string {
	out := map[string]string{}
	entries, ok := src[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range entries {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
