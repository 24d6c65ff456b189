package shared

// Permission strings used across the Chronicle surface. The grammar and
// evaluation live in internal/permission; these constants exist so call
// sites never hand-build strings.
const (
	PermArticleCreate = "article.CREATE"
	PermArticleRead   = "article.READ"
	PermArticleUpdate = "article.UPDATE"
	PermArticleDelete = "article.DELETE"
	PermArticleAll    = "article.ALL"

	PermJournalIssueCreate = "journalissue.CREATE"
	PermJournalIssueRead   = "journalissue.READ"
	PermJournalIssueUpdate = "journalissue.UPDATE"
	PermJournalIssueDelete = "journalissue.DELETE"

	PermEditorialBoardRead   = "editorialboard.READ"
	PermEditorialBoardUpdate = "editorialboard.UPDATE"
	PermEditorialBoardCreate = "editorialboard.CREATE"
	PermEditorialBoardDelete = "editorialboard.DELETE"

	PermMediaCreate = "media.CREATE"
	PermMediaRead   = "media.READ"
	PermMediaUpdate = "media.UPDATE"
	PermMediaDelete = "media.DELETE"

	PermNotificationRead   = "notification.READ"
	PermNotificationUpdate = "notification.UPDATE"

	PermUserRead   = "user.READ"
	PermUserUpdate = "user.UPDATE"
	PermUserAll    = "user.ALL"

	PermRoleRead = "role.READ"
	PermRoleAll  = "role.ALL"

	PermSystemAdmin          = "SYSTEM.ADMIN"
	PermSystemUserManagement = "SYSTEM.USER_MANAGEMENT"
	PermSystemRoleManagement = "SYSTEM.ROLE_MANAGEMENT"
)

// EditorialScopes lists the permissions governing editorial content.
func EditorialScopes() []string {
	return []string{
		PermArticleCreate,
		PermArticleRead,
		PermArticleUpdate,
		PermArticleDelete,
		PermJournalIssueCreate,
		PermJournalIssueRead,
		PermJournalIssueUpdate,
		PermJournalIssueDelete,
		PermEditorialBoardRead,
		PermEditorialBoardCreate,
		PermEditorialBoardUpdate,
		PermEditorialBoardDelete,
		PermMediaCreate,
		PermMediaRead,
		PermMediaUpdate,
		PermMediaDelete,
	}
}

// AdminScopes lists the permissions governing the administrative surface.
func AdminScopes() []string {
	return []string{
		PermUserRead,
		PermUserUpdate,
		PermUserAll,
		PermRoleRead,
		PermRoleAll,
		PermSystemAdmin,
		PermSystemUserManagement,
		PermSystemRoleManagement,
	}
}
