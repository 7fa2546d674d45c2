package bot

import "github.com/bwmarrin/discordgo"

var (
	permManageMessages  int64 = discordgo.PermissionManageMessages
	permModerateMembers int64 = discordgo.PermissionModerateMembers
	dmDisabled                = false
	minOne                    = 1.0
	minZero                   = 0.0
)

// maxXPGrant caps a single /level add; the engine still rejects grants past MaxLevel.
const maxXPGrant = 1_000_000_000

func userOption(description, descriptionEN string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "utilisateur",
		Description: description,
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.EnglishUS: descriptionEN,
		},
		Required: true,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "level",
			Description: "Afficher ton niveau ou gérer les niveaux",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Afficher ton niveau ou gérer les niveaux",
				discordgo.EnglishUS: "Show your level or manage levels",
			},
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Voir ton niveau actuel",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Show your current level",
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Définir le niveau d'un utilisateur (Admin)",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Set a user's level (Admin)",
					},
					Options: []*discordgo.ApplicationCommandOption{
						userOption("L'utilisateur", "The user"),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "niveau",
							Description: "Le nouveau niveau",
							DescriptionLocalizations: map[discordgo.Locale]string{
								discordgo.EnglishUS: "The new level",
							},
							MinValue: &minZero,
							MaxValue: 1000,
							Required: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Ajouter de l'XP à un utilisateur (Admin)",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Give XP to a user (Admin)",
					},
					Options: []*discordgo.ApplicationCommandOption{
						userOption("L'utilisateur", "The user"),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "xp",
							Description: "La quantité d'XP à ajouter",
							DescriptionLocalizations: map[discordgo.Locale]string{
								discordgo.EnglishUS: "Amount of XP to add",
							},
							MinValue: &minOne,
							MaxValue: maxXPGrant,
							Required: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Réinitialiser le niveau d'un utilisateur (Admin)",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Reset a user's level (Admin)",
					},
					Options: []*discordgo.ApplicationCommandOption{
						userOption("L'utilisateur", "The user"),
					},
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Afficher le classement du serveur",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Afficher le classement du serveur",
				discordgo.EnglishUS: "Show the server leaderboard",
			},
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Numéro de page",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Page number",
					},
					MinValue: &minOne,
				},
			},
		},
		{
			Name:        "filter",
			Description: "Gérer la liste des mots interdits",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Gérer la liste des mots interdits",
				discordgo.EnglishUS: "Manage the word blacklist",
			},
			DefaultMemberPermissions: &permManageMessages,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Ajouter un mot à la liste noire",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Blacklist a word",
					},
					Options: []*discordgo.ApplicationCommandOption{wordOption("Le mot à interdire", "Word to blacklist")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Retirer un mot de la liste noire",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Remove a word from the blacklist",
					},
					Options: []*discordgo.ApplicationCommandOption{wordOption("Le mot à retirer", "Word to remove")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Afficher la liste des mots interdits",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Show the blacklist",
					},
				},
			},
		},
		{
			Name:        "warn",
			Description: "Avertir un utilisateur",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Avertir un utilisateur",
				discordgo.EnglishUS: "Warn a user",
			},
			DefaultMemberPermissions: &permModerateMembers,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("L'utilisateur à avertir", "User to warn"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "raison",
					Description: "Raison de l'avertissement",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Reason for the warning",
					},
					MaxLength: 500,
					Required:  true,
				},
			},
		},
		{
			Name:        "warnings",
			Description: "Voir les avertissements d'un utilisateur",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Voir les avertissements d'un utilisateur",
				discordgo.EnglishUS: "Show a user's warnings",
			},
			DefaultMemberPermissions: &permModerateMembers,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("L'utilisateur à vérifier", "User to check"),
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "effacer",
					Description: "Effacer tous les avertissements",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Clear every warning",
					},
				},
			},
		},
		{
			Name:        "mute",
			Description: "Rendre muet un utilisateur temporairement",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Rendre muet un utilisateur temporairement",
				discordgo.EnglishUS: "Temporarily mute a user",
			},
			DefaultMemberPermissions: &permModerateMembers,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("L'utilisateur à mute", "User to mute"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "durée",
					Description: "Durée du mute (ex: 10m, 1h, 1d)",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Mute duration (e.g. 10m, 1h, 1d)",
					},
					Required: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "raison",
					Description: "Raison du mute",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.EnglishUS: "Reason for the mute",
					},
					MaxLength: 500,
				},
			},
		},
	}
}

func wordOption(description, descriptionEN string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "mot",
		Description: description,
		DescriptionLocalizations: map[discordgo.Locale]string{
			discordgo.EnglishUS: descriptionEN,
		},
		MaxLength: 100,
		Required:  true,
	}
}

// registerCommands replaces the global command set with the static registry.
func (b *Bot) registerCommands() error {
	appID := ""
	if b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions())
	return err
}
