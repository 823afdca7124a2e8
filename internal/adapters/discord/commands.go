package discord

import "github.com/bwmarrin/discordgo"

// Command names.
const (
	CmdRegister  = "register"
	CmdVerify    = "verify"
	CmdCard      = "card"
	CmdLookup    = "lookup"
	CmdSetStatus = "setstatus"
	CmdSetRole   = "setrole"
	CmdDelete    = "delete"
	CmdList      = "list"
)

func idOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Member ID",
		Required:    true,
		MinLength:   intPtr(6),
		MaxLength:   6,
	}
}

func intPtr(v int) *int { return &v }

// Commands returns the slash commands the bot answers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CmdRegister,
			Description: "Register a new member",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Member full name", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "role", Description: "Member role", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Account the card belongs to"},
			},
		},
		{Name: CmdVerify, Description: "Verify a member ID", Options: []*discordgo.ApplicationCommandOption{idOption()}},
		{Name: CmdCard, Description: "Generate ID card", Options: []*discordgo.ApplicationCommandOption{idOption()}},
		{Name: CmdLookup, Description: "Lookup member by ID", Options: []*discordgo.ApplicationCommandOption{idOption()}},
		{
			Name:        CmdSetStatus,
			Description: "Change member status",
			Options: []*discordgo.ApplicationCommandOption{
				idOption(),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "status",
					Description: "New status (ACTIVE / SUSPENDED / REVOKED)",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "ACTIVE", Value: "ACTIVE"},
						{Name: "SUSPENDED", Value: "SUSPENDED"},
						{Name: "REVOKED", Value: "REVOKED"},
					},
				},
			},
		},
		{
			Name:        CmdSetRole,
			Description: "Change member role",
			Options: []*discordgo.ApplicationCommandOption{
				idOption(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "role", Description: "New role", Required: true},
			},
		},
		{Name: CmdDelete, Description: "Delete a member", Options: []*discordgo.ApplicationCommandOption{idOption()}},
		{Name: CmdList, Description: "List all members"},
	}
}
