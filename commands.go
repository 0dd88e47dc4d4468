package studyhall

import (
	"github.com/bwmarrin/discordgo"
)

const (
	DurationOption    = "duration"
	MentionsOption    = "mentions"
	ChannelsOption    = "channels"
	NameOption        = "name"
	MaxSizeOption     = "max_size"
	FocusOption       = "focus"
	ShortBreakOption  = "short_break"
	LongBreakOption   = "long_break"
	UserOption        = "user"
	DescriptionOption = "description"
	TaskIDOption      = "task_id"
)

func float64Ptr(f float64) *float64 {
	return &f
}

var CheckinCommand = discordgo.ApplicationCommand{
	Name:        "checkin",
	Description: "start a recurring check-in session",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        DurationOption,
			Description: "reminder interval, e.g. 5m or 45 secs (minimum 30s)",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        MentionsOption,
			Description: "users or roles to include in the check-in",
		},
	},
}

var CheckinChannelsCommand = discordgo.ApplicationCommand{
	Name:        "checkin_channels",
	Description: "set the channels check-ins may run in (manager only)",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        ChannelsOption,
			Description: "channel mentions, e.g. #study #focus",
			Required:    true,
		},
	},
}

var CreateGroupCommand = discordgo.ApplicationCommand{
	Name:        "create_group",
	Description: "create a new study group",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        NameOption,
			Description: "name of the study group",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        MaxSizeOption,
			Description: "maximum number of members (Default: 10)",
			MinValue:    float64Ptr(1),
			MaxValue:    100,
		},
	},
}

var JoinGroupCommand = discordgo.ApplicationCommand{
	Name:        "join_group",
	Description: "join the existing study group",
}

var LeaveGroupCommand = discordgo.ApplicationCommand{
	Name:        "leave_group",
	Description: "leave the current study group",
}

var EndGroupCommand = discordgo.ApplicationCommand{
	Name:        "end_group",
	Description: "end the current study group (creator only)",
}

var StartPomodoroCommand = discordgo.ApplicationCommand{
	Name:        "start_pomodoro",
	Description: "start a Pomodoro session for the study group",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        FocusOption,
			Description: "focus duration in minutes (Default: 25)",
			MinValue:    float64Ptr(1),
			MaxValue:    240,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        ShortBreakOption,
			Description: "short break duration in minutes (Default: 5)",
			MinValue:    float64Ptr(1),
			MaxValue:    240,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        LongBreakOption,
			Description: "long break duration in minutes (Default: 15)",
			MinValue:    float64Ptr(1),
			MaxValue:    240,
		},
	},
}

var EndPomodoroCommand = discordgo.ApplicationCommand{
	Name:        "end_pomodoro",
	Description: "end the current Pomodoro session",
}

var PausePomodoroCommand = discordgo.ApplicationCommand{
	Name:        "pause_pomodoro",
	Description: "pause the current Pomodoro session",
}

var ResumePomodoroCommand = discordgo.ApplicationCommand{
	Name:        "resume_pomodoro",
	Description: "resume the paused Pomodoro session",
}

var CreateVCCommand = discordgo.ApplicationCommand{
	Name:        "create_vc",
	Description: "create a voice channel for the study group",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        NameOption,
			Description: "name of the voice channel (optional)",
		},
	},
}

var DeleteVCCommand = discordgo.ApplicationCommand{
	Name:        "delete_vc",
	Description: "delete the voice channel for the study group",
}

var AddBotDeveloperCommand = discordgo.ApplicationCommand{
	Name:        "add_bot_developer",
	Description: "add a bot developer (bot developer only)",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        UserOption,
			Description: "the user to add as a bot developer",
			Required:    true,
		},
	},
}

var AddGuildManagerCommand = discordgo.ApplicationCommand{
	Name:        "add_guild_manager",
	Description: "add a guild manager (bot developer only)",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        UserOption,
			Description: "the user to add as a guild manager",
			Required:    true,
		},
	},
}

var RemoveGuildManagerCommand = discordgo.ApplicationCommand{
	Name:        "remove_guild_manager",
	Description: "remove a guild manager (guild manager or above)",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        UserOption,
			Description: "the user to remove as a guild manager",
			Required:    true,
		},
	},
}

var ListManagersCommand = discordgo.ApplicationCommand{
	Name:        "list_managers",
	Description: "list all managers for this server",
}

var TaskAddCommand = discordgo.ApplicationCommand{
	Name:        "task_add",
	Description: "add a task to your list",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        DescriptionOption,
			Description: "what you plan to get done",
			Required:    true,
		},
	},
}

var TaskCompleteCommand = discordgo.ApplicationCommand{
	Name:        "task_complete",
	Description: "mark a task as complete",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        TaskIDOption,
			Description: "the task id",
			Required:    true,
		},
	},
}

var TaskListCommand = discordgo.ApplicationCommand{
	Name:        "task_list",
	Description: "list your current tasks",
}

var Commands = []*discordgo.ApplicationCommand{
	&CheckinCommand,
	&CheckinChannelsCommand,
	&CreateGroupCommand,
	&JoinGroupCommand,
	&LeaveGroupCommand,
	&EndGroupCommand,
	&StartPomodoroCommand,
	&EndPomodoroCommand,
	&PausePomodoroCommand,
	&ResumePomodoroCommand,
	&CreateVCCommand,
	&DeleteVCCommand,
	&AddBotDeveloperCommand,
	&AddGuildManagerCommand,
	&RemoveGuildManagerCommand,
	&ListManagersCommand,
	&TaskAddCommand,
	&TaskCompleteCommand,
	&TaskListCommand,
}
