package tool

import "github.com/sukru-can1/agent1go/internal/model"

// ToolGroups generalizes groups.py's TOOL_GROUPS from named SaaS vendors
// (gmail/gchat/freshdesk/starinfinity/feedbacks) to this module's source
// vocabulary (mail/chat/ticketing/projectmanagement/survey/drive).
var ToolGroups = map[string][]string{
	"mail": {
		"mail_get_new_messages",
		"mail_draft_reply",
		"mail_send_approved",
	},
	"chat_agent": {
		"chat_post_message",
		"chat_get_messages",
	},
	"chat_user": {
		"chat_reply_as_user",
	},
	"drive": {
		"drive_search",
		"drive_read_document",
	},
	"ticketing": {
		"ticketing_get_tickets",
		"ticketing_add_note",
		"ticketing_update_ticket",
	},
	"projectmanagement": {
		"projectmanagement_get_tasks",
		"projectmanagement_create_task",
	},
	"survey": {
		"survey_get_responses",
		"survey_get_csat_summary",
	},
	"memory": {
		"memory_search",
		"memory_store_incident",
		"memory_store_knowledge",
	},
	"admin": {
		"create_dynamic_tool",
		"list_dynamic_tools",
	},
}

// CredentialRequirements lists, per group, the config flags that must be
// set for the group to be offered — generalizing groups.py's
// CREDENTIAL_REQUIREMENTS. internal/config builds the CredentialChecker
// that evaluates these.
var CredentialRequirements = map[string][]string{
	"mail":              {"google_refresh_token"},
	"chat_agent":        {"google_service_account_json"},
	"chat_user":         {"google_refresh_token"},
	"drive":             {"google_refresh_token"},
	"ticketing":         {"ticketing_api_key"},
	"projectmanagement": {"projectmanagement_api_key"},
	"survey":            {"survey_api_key"},
}

// SourceGroups maps an event source to the additional tool groups it should
// see, beyond AlwaysIncluded, generalizing groups.py's SOURCE_GROUPS.
var SourceGroups = map[model.Source][]string{
	model.SourceMail:              {"mail", "drive", "ticketing", "projectmanagement"},
	model.SourceChat:              {"mail", "drive", "ticketing", "projectmanagement", "survey", "chat_user"},
	model.SourceTicketing:         {"ticketing", "projectmanagement", "mail"},
	model.SourceProjectManagement: {"projectmanagement", "ticketing"},
	model.SourceSurvey:            {"survey", "chat_user"},
	model.SourceDrive:             {"drive"},
	model.SourceDashboard:         allGroupNames(),
	model.SourceSystem:            allGroupNames(),
}

// AlwaysIncluded groups are offered regardless of source.
var AlwaysIncluded = []string{"memory", "chat_agent"}

func allGroupNames() []string {
	names := make([]string, 0, len(ToolGroups))
	for g := range ToolGroups {
		names = append(names, g)
	}
	return names
}
