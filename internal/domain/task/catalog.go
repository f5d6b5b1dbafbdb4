package task

// Catalog returns the built-in task definitions seeded at process start.
// Seeding is idempotent: the startup routine upserts each definition once,
// so restarting never duplicates or resets catalog rows.
func Catalog() []Definition {
	return []Definition{
		// Level 1 - getting started
		{
			ID:            "first-conversation",
			Title:         "First Conversation",
			Description:   "Exchange your first message with the tutor",
			Category:      CategoryContent,
			Level:         1,
			Order:         1,
			Points:        20,
			RequiredCount: 1,
		},
		{
			ID:            "chatterbox",
			Title:         "Chatterbox",
			Description:   "Send 25 messages to the tutor",
			Category:      CategoryContent,
			Level:         1,
			Order:         2,
			Points:        50,
			RequiredCount: 25,
			Prerequisites: []string{"first-conversation"},
		},
		{
			ID:            "first-lesson",
			Title:         "Lesson One Down",
			Description:   "Complete your first lesson",
			Category:      CategoryLesson,
			Level:         1,
			Order:         3,
			Points:        100,
			RequiredCount: 1,
		},
		{
			ID:            "daily-visitor",
			Title:         "Daily Visitor",
			Description:   "Log in on 3 days",
			Category:      CategoryStreak,
			Level:         1,
			Order:         4,
			Points:        30,
			RequiredCount: 3,
		},

		// Level 2 - building habits
		{
			ID:            "conversationalist",
			Title:         "Conversationalist",
			Description:   "Send 100 messages to the tutor",
			Category:      CategoryContent,
			Level:         2,
			Order:         1,
			Points:        120,
			RequiredCount: 100,
			Prerequisites: []string{"chatterbox"},
		},
		{
			ID:            "curriculum-climber",
			Title:         "Curriculum Climber",
			Description:   "Complete 5 lessons",
			Category:      CategoryLesson,
			Level:         2,
			Order:         2,
			Points:        200,
			RequiredCount: 5,
			Prerequisites: []string{"first-lesson"},
		},
		{
			ID:            "week-streak",
			Title:         "Week Streak",
			Description:   "Log in on 7 days",
			Category:      CategoryStreak,
			Level:         2,
			Order:         3,
			Points:        100,
			RequiredCount: 7,
			Prerequisites: []string{"daily-visitor"},
		},

		// Level 3 - commitment
		{
			ID:            "marathon-talker",
			Title:         "Marathon Talker",
			Description:   "Send 500 messages to the tutor",
			Category:      CategoryContent,
			Level:         3,
			Order:         1,
			Points:        300,
			RequiredCount: 500,
			Prerequisites: []string{"conversationalist"},
		},
		{
			ID:            "scholar",
			Title:         "Scholar",
			Description:   "Complete 20 lessons",
			Category:      CategoryLesson,
			Level:         3,
			Order:         2,
			Points:        500,
			RequiredCount: 20,
			Prerequisites: []string{"curriculum-climber"},
		},
		{
			ID:            "month-streak",
			Title:         "Month Streak",
			Description:   "Log in on 30 days",
			Category:      CategoryStreak,
			Level:         3,
			Order:         3,
			Points:        400,
			RequiredCount: 30,
			Prerequisites: []string{"week-streak"},
		},
	}
}
