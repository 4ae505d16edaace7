package workflows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

const (
	stepSurname    conversation.StepID = "surname"
	stepName       conversation.StepID = "name"
	stepPatronymic conversation.StepID = "patronymic"
	stepRole       conversation.StepID = "role"
	stepGroup      conversation.StepID = "group"
	stepCompany    conversation.StepID = "company"
)

func roleOptions() []conversation.Option {
	return []conversation.Option{
		{Label: backend.RoleStudent, Value: backend.RoleStudent},
		{Label: backend.RoleManager, Value: backend.RoleManager},
	}
}

// StartRegistration opens the registration workflow for a user who is not
// registered yet. Already-registered users get a pointer to /status.
func (w *Workflows) StartRegistration(ctx context.Context, userID int64, username string) (conversation.Result, error) {
	existing, err := w.api.UserByTelegramID(ctx, userID)
	if err != nil {
		return w.failureResult("Registration", err), nil
	}
	if existing != nil {
		return conversation.Result{
			Reply: "You are already registered! Use /status to check your approval status.",
			Done:  true,
		}, nil
	}

	if username == "" {
		username = "user_" + strconv.FormatInt(userID, 10)
	}
	if _, err := w.engine.Start(userID, conversation.KindRegistration, map[string]string{
		"telegram_username": username,
	}, nil); err != nil {
		return conversation.Result{}, err
	}
	return conversation.Result{
		Reply: "Let's register your account! 📝\n\nFirst, please enter your surname:",
	}, nil
}

func (w *Workflows) registrationDefinition() *conversation.Definition {
	return &conversation.Definition{
		Kind:    conversation.KindRegistration,
		Initial: stepSurname,
		Steps: map[conversation.StepID]conversation.Handler{
			stepSurname:    w.collectSurname,
			stepName:       w.collectName,
			stepPatronymic: w.collectPatronymic,
			stepRole:       w.collectRole,
			stepGroup:      w.collectGroup,
			stepCompany:    w.collectCompany,
		},
	}
}

func (w *Workflows) collectSurname(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	surname := strings.TrimSpace(input)
	if surname == "" {
		return conversation.Result{Reply: "Surname may not be empty. Please enter your surname:"}, nil
	}
	sess.Data["surname"] = surname
	return conversation.Result{Reply: "Now, please enter your name:", Next: stepName}, nil
}

func (w *Workflows) collectName(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return conversation.Result{Reply: "Name may not be empty. Please enter your name:"}, nil
	}
	sess.Data["name"] = name
	return conversation.Result{
		Reply: "Please enter your patronymic (or type 'none' if you don't have one):",
		Next:  stepPatronymic,
	}, nil
}

func (w *Workflows) collectPatronymic(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	patronymic := strings.TrimSpace(input)
	if patronymic == "" {
		return conversation.Result{Reply: "Please enter your patronymic (or type 'none'):"}, nil
	}
	if !strings.EqualFold(patronymic, "none") {
		sess.Data["patronymic"] = patronymic
	}
	return conversation.Result{
		Reply:   "Please select your role:",
		Options: roleOptions(),
		Next:    stepRole,
	}, nil
}

func (w *Workflows) collectRole(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	role := strings.ToUpper(strings.TrimSpace(input))
	switch role {
	case backend.RoleStudent:
		sess.Data["role"] = role
		return conversation.Result{Reply: "Please enter your group:", Next: stepGroup}, nil
	case backend.RoleManager:
		sess.Data["role"] = role
		companies, err := w.api.Companies(ctx)
		if err != nil {
			return w.failureResult("Registration", err), nil
		}
		if len(companies) == 0 {
			return conversation.Result{Reply: "Please enter your company ID:", Next: stepCompany}, nil
		}
		if err := storeCompanies(sess, companies); err != nil {
			return conversation.Result{}, err
		}
		sess.Data["company_page"] = "0"
		reply, opts := renderCompanyPage(companies, 0, w.pageSize)
		return conversation.Result{Reply: reply, Options: opts, Next: stepCompany}, nil
	default:
		return conversation.Result{
			Reply:   fmt.Sprintf("Please select one of: %s, %s:", backend.RoleStudent, backend.RoleManager),
			Options: roleOptions(),
		}, nil
	}
}

func (w *Workflows) collectGroup(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	group := strings.TrimSpace(input)
	if group == "" {
		return conversation.Result{Reply: "Group may not be empty. Please enter your group:"}, nil
	}
	sess.Data["group"] = group
	return w.commitRegistration(ctx, sess)
}

// collectCompany accepts a pager button, a company button, or a company
// id typed directly.
func (w *Workflows) collectCompany(ctx context.Context, sess *conversation.Session, input string) (conversation.Result, error) {
	value := strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(value, PagePrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(value, PagePrefix))
		if err != nil {
			return conversation.Result{Reply: "Please pick a company from the list:"}, nil
		}
		companies, err := loadCompanies(sess)
		if err != nil {
			return conversation.Result{}, err
		}
		sess.Data["company_page"] = strconv.Itoa(page)
		reply, opts := renderCompanyPage(companies, page, w.pageSize)
		return conversation.Result{Reply: reply, Options: opts}, nil
	case strings.HasPrefix(value, CompanyPrefix):
		sess.Data["company_id"] = strings.TrimPrefix(value, CompanyPrefix)
	case value != "":
		sess.Data["company_id"] = value
	default:
		return conversation.Result{Reply: "Please pick a company from the list or enter its ID:"}, nil
	}
	return w.commitRegistration(ctx, sess)
}

func (w *Workflows) commitRegistration(ctx context.Context, sess *conversation.Session) (conversation.Result, error) {
	req := backend.RegistrationRequest{
		TelegramChatID:   sess.UserID,
		TelegramUsername: sess.Data["telegram_username"],
		Surname:          sess.Data["surname"],
		Name:             sess.Data["name"],
		Role:             sess.Data["role"],
		Patronymic:       sess.Data["patronymic"],
	}
	switch req.Role {
	case backend.RoleStudent:
		req.Group = sess.Data["group"]
	case backend.RoleManager:
		req.CompanyID = sess.Data["company_id"]
	}

	if err := w.api.Register(ctx, req); err != nil {
		res := w.failureResult("Registration", err)
		res.Reply += "\nPlease try again with /register"
		return res, nil
	}
	w.log.Info().Int64("telegram_id", sess.UserID).Str("role", req.Role).Msg("user registered")
	return conversation.Result{
		Reply: "✅ Registration successful!\n\n" +
			"Your account has been submitted for admin approval. " +
			"You will be notified once approved and can then log in.",
		Done: true,
	}, nil
}
