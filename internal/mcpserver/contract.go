package mcpserver

// NoteFormatContract describes how notes are identified and linked. LLM
// consumers should read it before creating or updating notes.
const NoteFormatContract = `# Zettel Note Format Contract

A note is an id, an optional title, a Markdown body and a list of tags.
Links between notes are never stored separately: they are derived from the
wikilinks in the body every time the note is saved.

## Identifiers

- Ids match ` + "`" + `[a-z0-9-]+` + "`" + ` (lowercase letters, digits, hyphens).
- Leave the id empty on create_note to get a generated two-word id such as
  ` + "`" + `curious-fox` + "`" + `.
- Ids are permanent. There is no rename; create a new note and update the
  notes linking to the old one.

## Wikilinks

- ` + "`" + `[[other-note]]` + "`" + ` links to the note with id ` + "`" + `other-note` + "`" + `.
- The target may not exist yet. It shows up as a placeholder in graphs and
  becomes a real node once a note with that id is saved.
- Tokens whose content is not a valid id (spaces, capitals, pipes) are
  plain text and create no link.
- Linking the same target twice counts once. A note may link to itself.

## Tags

- Lowercase, kebab-case: ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `.
- Pass tags as a list, not inside the body.

## Reference notes

Set ` + "`" + `is_reference` + "`" + ` for notes that summarise an external source. They are
skipped by stale-note discovery.

## Example

` + "```" + `markdown
Foxes cache food in scattered spots, see [[wise-owl]] for the owl's view.
Related: [[forest-ecology]]
` + "```" + `
`
