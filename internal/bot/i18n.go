package bot

import "fmt"

var messages = map[string]map[string]string{
	"fr": {
		"error_title":          "Erreur",
		"error_only_guild":     "Cette commande ne fonctionne que sur un serveur.",
		"error_permission":     "Tu n'as pas la permission d'utiliser cette commande.",
		"error_failed":         "Une erreur s'est produite. Réessaie plus tard.",
		"error_unknown":        "Commande inconnue.",
		"error_invalid_input":  "Entrée invalide.",
		"error_invalid_level":  "Le niveau doit être compris entre 0 et %d.",
		"error_invalid_xp":     "La quantité d'XP doit être positive et ne pas dépasser le niveau %d.",
		"error_invalid_time":   "Format de durée invalide. Utilise: 10s, 5m, 1h, 1d, 1w",
		"error_mute_too_long":  "La durée maximum est de 28 jours.",
		"error_mute_failed":    "Je ne peux pas mute cet utilisateur.",
		"error_warn_bot":       "Tu ne peux pas avertir un bot.",
		"error_warn_self":      "Tu ne peux pas t'avertir toi-même.",
		"error_word_exists":    "Ce mot est déjà dans la liste noire.",
		"error_word_missing":   "Ce mot n'est pas dans la liste noire.",
		"level_title":          "📊 Profil de %s",
		"field_level":          "Niveau",
		"field_xp":             "XP",
		"field_total_xp":       "XP totale",
		"field_rank":           "Rang",
		"field_messages":       "Messages",
		"field_user":           "Utilisateur",
		"field_reason":         "Raison",
		"field_total":          "Total",
		"field_duration":       "Durée",
		"level_set_title":      "Niveau Défini",
		"level_set_desc":       "%s est maintenant niveau **%d**.",
		"level_add_title":      "XP Ajoutée",
		"level_add_desc":       "**%d** XP ajoutée à %s. Niveau actuel: **%d**.",
		"level_reset_title":    "Niveau Réinitialisé",
		"level_reset_desc":     "Le niveau de %s a été réinitialisé.",
		"leaderboard_title":    "🏆 Classement du Serveur",
		"leaderboard_empty":    "Aucun membre classé pour l'instant.",
		"leaderboard_line":     "%s %s • Niveau %d • %d XP",
		"leaderboard_footer":   "Page %d/%d",
		"filter_added_title":   "Mot Ajouté",
		"filter_added_desc":    "Le mot \"||%s||\" a été ajouté à la liste noire.",
		"filter_removed_title": "Mot Retiré",
		"filter_removed_desc":  "Le mot \"||%s||\" a été retiré de la liste noire.",
		"filter_list_title":    "🚫 Liste Noire",
		"filter_list_empty":    "Aucun mot dans la liste noire.",
		"warn_title":           "Avertissement",
		"warn_desc":            "%s a reçu un avertissement.",
		"warn_dm_desc":         "Tu as reçu un avertissement.",
		"warnings_title":       "⚠️ Avertissements",
		"warnings_none":        "Cet utilisateur n'a aucun avertissement.",
		"warnings_line":        "**%d.** %s • %s (par <@%s>)",
		"warnings_cleared":     "%d avertissement(s) effacé(s) pour %s.",
		"warnings_clear_title": "Avertissements Effacés",
		"mute_title":           "Utilisateur Mute",
		"mute_desc":            "%s a été mute pour %s.",
		"reason_none":          "Aucune raison fournie",
		"log_title":            "📋 %s",
		"log_field_executor":   "Exécuteur",
		"log_field_target":     "Cible",
		"log_field_channel":    "Salon",
		"log_field_severity":   "Sévérité",
		"log_message_deleted":  "Message supprimé dans <#%s>",
		"log_member_joined":    "%s a rejoint le serveur",
		"log_member_left":      "%s a quitté le serveur",
		"footer_brand":         "Tsukihane",
		"value_none":           "—",
	},
	"en": {
		"error_title":          "Error",
		"error_only_guild":     "This command only works in a server.",
		"error_permission":     "You are not allowed to use this command.",
		"error_failed":         "Something went wrong. Try again later.",
		"error_unknown":        "Unknown command.",
		"error_invalid_input":  "Invalid input.",
		"error_invalid_level":  "Level must be between 0 and %d.",
		"error_invalid_xp":     "XP amount must be positive and stay within level %d.",
		"error_invalid_time":   "Invalid duration. Use: 10s, 5m, 1h, 1d, 1w",
		"error_mute_too_long":  "The maximum duration is 28 days.",
		"error_mute_failed":    "I cannot mute this user.",
		"error_warn_bot":       "You cannot warn a bot.",
		"error_warn_self":      "You cannot warn yourself.",
		"error_word_exists":    "This word is already blacklisted.",
		"error_word_missing":   "This word is not blacklisted.",
		"level_title":          "📊 %s's profile",
		"field_level":          "Level",
		"field_xp":             "XP",
		"field_total_xp":       "Total XP",
		"field_rank":           "Rank",
		"field_messages":       "Messages",
		"field_user":           "User",
		"field_reason":         "Reason",
		"field_total":          "Total",
		"field_duration":       "Duration",
		"level_set_title":      "Level Set",
		"level_set_desc":       "%s is now level **%d**.",
		"level_add_title":      "XP Added",
		"level_add_desc":       "Added **%d** XP to %s. Current level: **%d**.",
		"level_reset_title":    "Level Reset",
		"level_reset_desc":     "%s's level has been reset.",
		"leaderboard_title":    "🏆 Server Leaderboard",
		"leaderboard_empty":    "Nobody is ranked yet.",
		"leaderboard_line":     "%s %s • Level %d • %d XP",
		"leaderboard_footer":   "Page %d/%d",
		"filter_added_title":   "Word Added",
		"filter_added_desc":    "\"||%s||\" has been blacklisted.",
		"filter_removed_title": "Word Removed",
		"filter_removed_desc":  "\"||%s||\" has been removed from the blacklist.",
		"filter_list_title":    "🚫 Blacklist",
		"filter_list_empty":    "The blacklist is empty.",
		"warn_title":           "Warning",
		"warn_desc":            "%s has been warned.",
		"warn_dm_desc":         "You have received a warning.",
		"warnings_title":       "⚠️ Warnings",
		"warnings_none":        "This user has no warnings.",
		"warnings_line":        "**%d.** %s • %s (by <@%s>)",
		"warnings_cleared":     "Cleared %d warning(s) for %s.",
		"warnings_clear_title": "Warnings Cleared",
		"mute_title":           "User Muted",
		"mute_desc":            "%s has been muted for %s.",
		"reason_none":          "No reason given",
		"log_title":            "📋 %s",
		"log_field_executor":   "Executor",
		"log_field_target":     "Target",
		"log_field_channel":    "Channel",
		"log_field_severity":   "Severity",
		"log_message_deleted":  "Message deleted in <#%s>",
		"log_member_joined":    "%s joined the server",
		"log_member_left":      "%s left the server",
		"footer_brand":         "Tsukihane",
		"value_none":           "—",
	},
}

// t looks up key in lang, falling back to French and then to the key itself.
func (b *Bot) t(lang, key string, args ...any) string {
	text, ok := messages[lang][key]
	if !ok {
		text, ok = messages["fr"][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
