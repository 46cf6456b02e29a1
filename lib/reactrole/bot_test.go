package reactrole

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/store/memory"
)

const (
	guildID   = "500000000000000001"
	adminID   = "500000000000000002"
	memberID  = "500000000000000003"
	botID     = "500000000000000004"
	channelID = "500000000000000005"
	voiceID   = "500000000000000006"
	roleLow   = "500000000000000007"
	roleHigh  = "500000000000000008"
	botRole   = "500000000000000009"
	emojiID   = "500000000000000010"
	postedID  = "600000000000000001"
)

type fakeSession struct {
	lock      sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	sent      map[string][]*discordgo.MessageSend
	reactions []string
	roleCalls []string
	roleErr   error
	sendErr   error
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.roleCalls = append(f.roleCalls, "+"+userID+"/"+roleID)
	return f.roleErr
}

func (f *fakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.roleCalls = append(f.roleCalls, "-"+userID+"/"+roleID)
	return f.roleErr
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.sendErr != nil && !strings.HasPrefix(channelID, "dm:") {
		return nil, f.sendErr
	}
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: postedID, ChannelID: channelID}, nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm:" + recipientID}, nil
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if emojiID == "💥" {
		return errors.New("Unknown Emoji")
	}
	f.reactions = append(f.reactions, messageID+"/"+emojiID)
	return nil
}

func (f *fakeSession) lastEmbed(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	if len(f.responses) == 0 {
		t.Fatal("no interaction response was sent")
	}
	resp := f.responses[len(f.responses)-1]
	if resp.Data == nil || len(resp.Data.Embeds) != 1 {
		t.Fatalf("wanted one embed, got %+v", resp.Data)
	}
	return resp.Data.Embeds[0]
}

func (f *fakeSession) lastEdit(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	if len(f.edits) == 0 {
		t.Fatal("deferred response was never completed")
	}
	edit := f.edits[len(f.edits)-1]
	return (*edit.Embeds)[0]
}

type fakeDirectory struct {
	roles    []*discordgo.Role
	emojis   []*discordgo.Emoji
	channels map[string]*discordgo.Channel
	members  map[string]*discordgo.Member
}

func (d *fakeDirectory) SelfID() string { return botID }

func (d *fakeDirectory) Roles(context.Context, string) ([]*discordgo.Role, error) {
	return d.roles, nil
}

func (d *fakeDirectory) Emojis(context.Context, string) ([]*discordgo.Emoji, error) {
	return d.emojis, nil
}

func (d *fakeDirectory) Channel(_ context.Context, id string) (*discordgo.Channel, error) {
	if ch, ok := d.channels[id]; ok {
		return ch, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

func (d *fakeDirectory) Member(_ context.Context, _, userID string) (*discordgo.Member, error) {
	if m, ok := d.members[userID]; ok {
		return m, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

type harness struct {
	bot      *Bot
	session  *fakeSession
	dir      *fakeDirectory
	messages *Messages
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tpls, err := DefaultTemplates()
	if err != nil {
		t.Fatal(err)
	}

	session := &fakeSession{sent: map[string][]*discordgo.MessageSend{}}
	dir := &fakeDirectory{
		roles: []*discordgo.Role{
			{ID: guildID, Name: "@everyone"},
			{ID: roleLow, Name: "Updates", Position: 1},
			{ID: botRole, Name: "Gatekeeper", Position: 5, Permissions: discordgo.PermissionManageRoles},
			{ID: roleHigh, Name: "Mods", Position: 9},
		},
		emojis: []*discordgo.Emoji{{ID: emojiID, Name: "blob"}},
		channels: map[string]*discordgo.Channel{
			channelID: {ID: channelID, GuildID: guildID, Type: discordgo.ChannelTypeGuildText},
			voiceID:   {ID: voiceID, GuildID: guildID, Type: discordgo.ChannelTypeGuildVoice},
		},
		members: map[string]*discordgo.Member{
			botID:    {User: &discordgo.User{ID: botID}, Roles: []string{botRole}},
			memberID: {User: &discordgo.User{ID: memberID}},
		},
	}
	messages := NewMessages(memory.New(t.Context()))

	bot := New(session, Options{
		Messages:  messages,
		Directory: dir,
		Templates: tpls,
		Embeds:    &embeds.Builder{Footer: "Gatekeeper"},
	})

	return &harness{bot: bot, session: session, dir: dir, messages: messages}
}

func interaction(typ discordgo.InteractionType, data discordgo.InteractionData, perms int64) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    typ,
			GuildID: guildID,
			Member:  &discordgo.Member{User: &discordgo.User{ID: adminID}, Permissions: perms},
			Locale:  discordgo.EnglishUS,
			Data:    data,
		},
	}
}

func builderSubmit(template, title, pairs, channel string) *discordgo.InteractionCreate {
	row := func(id, value string) discordgo.MessageComponent {
		return &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}}
	}

	return interaction(discordgo.InteractionModalSubmit, discordgo.ModalSubmitInteractionData{
		CustomID: gatekeeper.CustomIDRoleModal + ":" + template,
		Components: []discordgo.MessageComponent{
			row(inputTitle, title),
			row(inputBody, ""),
			row(inputPairs, pairs),
			row(inputChannel, channel),
		},
	}, discordgo.PermissionAdministrator)
}

func TestSetupCommand(t *testing.T) {
	h := newHarness(t)

	h.bot.HandleInteraction(t.Context(), interaction(discordgo.InteractionApplicationCommand,
		discordgo.ApplicationCommandInteractionData{Name: CommandSetup}, discordgo.PermissionManageRoles))
	if e := h.session.lastEmbed(t); e.Title != "Permission Denied" {
		t.Errorf("non-admins should be refused, got %q", e.Title)
	}

	h.bot.HandleInteraction(t.Context(), interaction(discordgo.InteractionApplicationCommand,
		discordgo.ApplicationCommandInteractionData{Name: CommandSetup}, discordgo.PermissionAdministrator))

	resp := h.session.responses[len(h.session.responses)-1]
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("guide should be ephemeral")
	}
	if resp.Data.Embeds[0].Title != "Reaction Roles Setup" {
		t.Errorf("unexpected guide %q", resp.Data.Embeds[0].Title)
	}

	menu := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	if menu.CustomID != gatekeeper.CustomIDRoleTemplate || len(menu.Options) != 4 {
		t.Errorf("unexpected template menu %+v", menu)
	}
	if menu.Options[2].Description != "Preview and use the Game Roles template" {
		t.Errorf("unexpected option description %q", menu.Options[2].Description)
	}

	button := resp.Data.Components[1].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	if button.CustomID != gatekeeper.CustomIDRoleBuilder {
		t.Errorf("unexpected button %q", button.CustomID)
	}
}

func TestTemplateSelectionOpensBuilder(t *testing.T) {
	h := newHarness(t)

	h.bot.HandleInteraction(t.Context(), interaction(discordgo.InteractionMessageComponent,
		discordgo.MessageComponentInteractionData{CustomID: gatekeeper.CustomIDRoleBuilder}, 0))
	if id := h.session.responses[0].Data.CustomID; id != "rr:modal:minimal" {
		t.Errorf("default template should be minimal, got %q", id)
	}

	h.bot.HandleInteraction(t.Context(), interaction(discordgo.InteractionMessageComponent,
		discordgo.MessageComponentInteractionData{CustomID: gatekeeper.CustomIDRoleTemplate, Values: []string{"pronouns"}}, 0))
	if e := h.session.lastEmbed(t); e.Title != "Choose Your Pronouns" {
		t.Errorf("unexpected preview %q", e.Title)
	}

	h.bot.HandleInteraction(t.Context(), interaction(discordgo.InteractionMessageComponent,
		discordgo.MessageComponentInteractionData{CustomID: gatekeeper.CustomIDRoleBuilder}, 0))
	modal := h.session.responses[len(h.session.responses)-1]
	if modal.Type != discordgo.InteractionResponseModal || modal.Data.CustomID != "rr:modal:pronouns" {
		t.Fatalf("unexpected modal %+v", modal)
	}
	if len(modal.Data.Components) != 4 {
		t.Errorf("want 4 inputs, got %d", len(modal.Data.Components))
	}
}

func TestBuildMessage(t *testing.T) {
	h := newHarness(t)

	pairs := "<:blob:>:" + roleLow + "\n🔔:" + roleLow + "\n💥:" + roleLow
	h.bot.HandleInteraction(t.Context(), builderSubmit("games", "", pairs, "<#"+channelID+">"))

	if len(h.session.responses) != 1 || h.session.responses[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("want a deferred response, got %+v", h.session.responses)
	}

	posted := h.session.sent[channelID]
	if len(posted) != 1 {
		t.Fatalf("want one posted message, got %d", len(posted))
	}
	e := posted[0].Embeds[0]
	if e.Title != "Select Your Game Roles" {
		t.Errorf("template title not used, got %q", e.Title)
	}
	if e.Fields[0].Name != "React with" || !strings.Contains(e.Fields[0].Value, "• <:blob:"+emojiID+"> → <@&"+roleLow+">") {
		t.Errorf("unexpected legend %+v", e.Fields[0])
	}

	if got := strings.Join(h.session.reactions, ","); got != postedID+"/blob:"+emojiID+","+postedID+"/🔔" {
		t.Errorf("unexpected reactions %s", got)
	}

	mm, ok, err := h.messages.Get(t.Context(), postedID)
	if err != nil || !ok {
		t.Fatalf("mapping not saved: ok=%v err=%v", ok, err)
	}
	if mm.Mappings[CustomKey(emojiID)] != roleLow || mm.CreatedBy != adminID || mm.ChannelID != channelID || len(mm.Mappings) != 3 {
		t.Errorf("unexpected mapping %+v", mm)
	}

	done := h.session.lastEdit(t)
	if done.Title != "Setup Complete" {
		t.Errorf("unexpected result %q", done.Title)
	}
	if !strings.Contains(done.Description, "Template used: Game Roles") ||
		!strings.Contains(done.Description, "https://discord.com/channels/"+guildID+"/"+channelID+"/"+postedID) ||
		!strings.Contains(done.Description, "Some reactions could not be added:") {
		t.Errorf("unexpected description %q", done.Description)
	}
}

func TestBuildValidation(t *testing.T) {
	h := newHarness(t)

	pairs := ":nope::" + roleLow + "\n🎉:" + roleHigh + "\nbroken"
	h.bot.HandleInteraction(t.Context(), builderSubmit("minimal", "Roles", pairs, voiceID))

	e := h.session.lastEmbed(t)
	if e.Title != "Setup Validation Failed" {
		t.Fatalf("unexpected reply %q", e.Title)
	}

	lines := strings.Split(e.Description, "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 problems, got %q", e.Description)
	}
	for i, want := range []string{"line 3:", "emoji not found", "invalid channel", "top role must be higher than the role: Mods"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("problem %d: want %q in %q", i, want, lines[i])
		}
		if strings.Contains(lines[i], "reactrole:") {
			t.Errorf("package prefix leaked into %q", lines[i])
		}
	}

	if len(h.session.sent) != 0 {
		t.Error("nothing should be posted when validation fails")
	}
}

func TestBuildSendFails(t *testing.T) {
	h := newHarness(t)
	h.session.sendErr = errors.New("Missing Access")

	h.bot.HandleInteraction(t.Context(), builderSubmit("minimal", "", "🔔:"+roleLow, channelID))

	done := h.session.lastEdit(t)
	if done.Title != "Failed to Send Message" || !strings.Contains(done.Description, "Missing Access") {
		t.Errorf("unexpected result %q: %q", done.Title, done.Description)
	}
	if _, ok, _ := h.messages.Get(t.Context(), postedID); ok {
		t.Error("nothing should be saved when posting fails")
	}
}

func (h *harness) post(t *testing.T) {
	t.Helper()
	if err := h.messages.Set(t.Context(), postedID, MessageMapping{
		GuildID:   guildID,
		ChannelID: channelID,
		Mappings: map[EmojiKey]string{
			UnicodeKey("🔔"):   roleLow,
			CustomKey(emojiID): roleHigh,
		},
	}); err != nil {
		t.Fatal(err)
	}
}

func reaction(userID string, emoji discordgo.Emoji) *discordgo.MessageReaction {
	return &discordgo.MessageReaction{
		UserID:    userID,
		MessageID: postedID,
		ChannelID: channelID,
		GuildID:   guildID,
		Emoji:     emoji,
	}
}

func TestReactions(t *testing.T) {
	h := newHarness(t)
	h.post(t)

	bell := discordgo.Emoji{Name: "🔔"}

	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{MessageReaction: reaction(botID, bell)})
	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{MessageReaction: reaction(memberID, discordgo.Emoji{Name: "🎉"})})
	if len(h.session.roleCalls) != 0 {
		t.Fatalf("own reactions and unmapped emojis should be ignored, got %v", h.session.roleCalls)
	}

	foreign := reaction(memberID, bell)
	foreign.GuildID = "somewhere-else"
	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{MessageReaction: foreign})
	if len(h.session.roleCalls) != 0 {
		t.Fatalf("reactions from another guild should be ignored, got %v", h.session.roleCalls)
	}

	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{
		MessageReaction: reaction(memberID, discordgo.Emoji{ID: emojiID, Name: "blob"}),
		Member:          &discordgo.Member{User: &discordgo.User{ID: memberID}},
	})
	if got := strings.Join(h.session.roleCalls, ","); got != "+"+memberID+"/"+roleHigh {
		t.Errorf("unexpected role changes %s", got)
	}

	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{
		MessageReaction: reaction(memberID, bell),
		Member:          &discordgo.Member{User: &discordgo.User{ID: memberID}, Roles: []string{roleLow}},
	})
	if len(h.session.roleCalls) != 1 {
		t.Errorf("a role the member already has should not be granted again, got %v", h.session.roleCalls)
	}

	h.bot.HandleReactionRemove(t.Context(), &discordgo.MessageReactionRemove{MessageReaction: reaction(memberID, bell)})
	if len(h.session.roleCalls) != 1 {
		t.Errorf("a role the member lacks should not be revoked, got %v", h.session.roleCalls)
	}

	h.dir.members[memberID].Roles = []string{roleLow}
	h.bot.HandleReactionRemove(t.Context(), &discordgo.MessageReactionRemove{MessageReaction: reaction(memberID, bell)})
	if got := h.session.roleCalls[len(h.session.roleCalls)-1]; got != "-"+memberID+"/"+roleLow {
		t.Errorf("want the role revoked, got %s", got)
	}
}

func TestReactionPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.post(t)
	h.session.roleErr = &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}

	h.bot.HandleReactionAdd(t.Context(), &discordgo.MessageReactionAdd{
		MessageReaction: reaction(memberID, discordgo.Emoji{Name: "🔔"}),
	})

	dms := h.session.sent["dm:"+memberID]
	if len(dms) != 1 {
		t.Fatalf("want one DM, got %d", len(dms))
	}
	e := dms[0].Embeds[0]
	if e.Title != "Role Assignment Failed" || !strings.Contains(e.Description, "<@&"+roleLow+">") {
		t.Errorf("unexpected DM %q: %q", e.Title, e.Description)
	}
}

func TestMessageDelete(t *testing.T) {
	h := newHarness(t)
	h.post(t)

	h.bot.HandleMessageDelete(t.Context(), &discordgo.MessageDelete{Message: &discordgo.Message{ID: "unrelated"}})
	if _, ok, _ := h.messages.Get(t.Context(), postedID); !ok {
		t.Fatal("deleting another message should keep the mapping")
	}

	h.bot.HandleMessageDeleteBulk(t.Context(), &discordgo.MessageDeleteBulk{Messages: []string{"unrelated", postedID}})
	if _, ok, _ := h.messages.Get(t.Context(), postedID); ok {
		t.Error("mapping should be forgotten with its message")
	}

	h.post(t)
	h.bot.HandleMessageDelete(t.Context(), &discordgo.MessageDelete{Message: &discordgo.Message{ID: postedID}})
	if _, ok, _ := h.messages.Get(t.Context(), postedID); ok {
		t.Error("mapping should be forgotten with its message")
	}
}
