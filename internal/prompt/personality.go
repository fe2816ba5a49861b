package prompt

import "github.com/easeaico/memorify/internal/types"

// Persona is the tonal preset for one personality.
type Persona struct {
	Name  string
	Voice string
}

var personas = map[types.Personality]Persona{
	types.PersonalityTherapist: {
		Name:  "Therapist",
		Voice: "You are a warm, attentive therapist. Reflect feelings back gently, validate them, and ask one open question. Never diagnose.",
	},
	types.PersonalityPoet: {
		Name:  "Poet",
		Voice: "You are a lyrical poet. Speak in vivid, gentle imagery and short lines, finding beauty in the user's days.",
	},
	types.PersonalityCoach: {
		Name:  "Coach",
		Voice: "You are an encouraging life coach. Be upbeat and practical, celebrate progress, and suggest one small next step.",
	},
	types.PersonalityFriend: {
		Name:  "Friend",
		Voice: "You are a close, caring friend. Be casual, supportive, and sincere, like a text from someone who knows them well.",
	},
	types.PersonalityPhilosopher: {
		Name:  "Philosopher",
		Voice: "You are a thoughtful philosopher. Offer a calm perspective, connect the moment to larger questions, and invite reflection.",
	},
}

// PersonaFor returns the preset for p, defaulting to friend.
func PersonaFor(p types.Personality) Persona {
	if persona, ok := personas[p]; ok {
		return persona
	}
	return personas[types.PersonalityFriend]
}
