package validation

import "github.com/motocabz/dispatch-core"

// IsValidOrderStatus validates a derived order status using standardized constants
func IsValidOrderStatus(status string) bool {
	validStatuses := []string{
		common.OrderStatusPending,
		common.OrderStatusOffered,
		common.OrderStatusAccepted,
		common.OrderStatusSuccess,
		common.OrderStatusPartiallyCompleted,
		common.OrderStatusFailed,
		common.OrderStatusCancelled,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidDriverStatus validates driver status using standardized constants
func IsValidDriverStatus(status string) bool {
	validStatuses := []string{
		common.DriverStatusInactive,
		common.DriverStatusActive,
		common.DriverStatusOffering,
		common.DriverStatusInWork,
		common.DriverStatusOnBreak,
		common.DriverStatusPending,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidWaypointType validates waypoint type using standardized constants
func IsValidWaypointType(wType string) bool {
	validTypes := []string{
		common.WaypointTypePickup,
		common.WaypointTypeDelivery,
	}
	for _, t := range validTypes {
		if t == wType {
			return true
		}
	}
	return false
}

// IsValidWaypointStatus validates waypoint status using standardized constants
func IsValidWaypointStatus(status string) bool {
	validStatuses := []string{
		common.WaypointStatusPending,
		common.WaypointStatusArrived,
		common.WaypointStatusProcessing,
		common.WaypointStatusCompleted,
		common.WaypointStatusSkipped,
		common.WaypointStatusFailed,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidMobileMoneyProvider validates a mobile-money payout provider using
// standardized constants
func IsValidMobileMoneyProvider(provider string) bool {
	validProviders := []string{
		common.PaymentMethodTelebirr,
		common.PaymentMethodMPesa,
		common.PaymentMethodOrangeMoney,
		common.PaymentMethodBankTransfer,
	}
	for _, p := range validProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// IsValidTransactionType validates order transaction type using standardized constants
func IsValidTransactionType(txType string) bool {
	validTypes := []string{
		common.TransactionTypeDriverPayment,
		common.TransactionTypeWithdrawal,
		common.TransactionTypePenalty,
		common.TransactionTypeBonus,
	}
	for _, t := range validTypes {
		if t == txType {
			return true
		}
	}
	return false
}

// IsValidTransactionStatus validates order transaction status using standardized constants
func IsValidTransactionStatus(status string) bool {
	validStatuses := []string{
		common.TransactionStatusPending,
		common.TransactionStatusSuccess,
		common.TransactionStatusFailed,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidOrderPriority validates order priority using standardized constants
func IsValidOrderPriority(priority string) bool {
	validPriorities := []string{
		common.OrderPriorityLow,
		common.OrderPriorityMedium,
		common.OrderPriorityHigh,
	}
	for _, p := range validPriorities {
		if p == priority {
			return true
		}
	}
	return false
}

// IsValidAdminRole validates admin role using standardized constants
func IsValidAdminRole(role string) bool {
	validRoles := []string{
		common.AdminRoleSuperAdmin,
		common.AdminRoleAdmin,
		common.AdminRoleOps,
		common.AdminRoleSupport,
	}
	for _, r := range validRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValidUserType validates user type using standardized constants
func IsValidUserType(userType string) bool {
	validTypes := []string{
		common.UserTypeDriver,
		common.UserTypeClient,
		common.UserTypeAdmin,
	}
	for _, t := range validTypes {
		if t == userType {
			return true
		}
	}
	return false
}

// ValidateOrderStatus validates a derived order status and returns a
// ValidationError if invalid
func ValidateOrderStatus(status string) *ValidationError {
	if !IsValidOrderStatus(status) {
		return &ValidationError{
			Field:   "orderStatus",
			Message: "invalid order status",
			Value:   status,
		}
	}
	return nil
}

// ValidateDriverStatus validates driver status and returns a ValidationError
// if invalid
func ValidateDriverStatus(status string) *ValidationError {
	if !IsValidDriverStatus(status) {
		return &ValidationError{
			Field:   "driverStatus",
			Message: "invalid driver status",
			Value:   status,
		}
	}
	return nil
}

// ValidateWaypointType validates waypoint type and returns a ValidationError
// if invalid
func ValidateWaypointType(wType string) *ValidationError {
	if !IsValidWaypointType(wType) {
		return &ValidationError{
			Field:   "waypointType",
			Message: "invalid waypoint type",
			Value:   wType,
		}
	}
	return nil
}

// ValidateWaypointStatus validates waypoint status and returns a
// ValidationError if invalid
func ValidateWaypointStatus(status string) *ValidationError {
	if !IsValidWaypointStatus(status) {
		return &ValidationError{
			Field:   "waypointStatus",
			Message: "invalid waypoint status",
			Value:   status,
		}
	}
	return nil
}

// ValidateMobileMoneyProvider validates a mobile-money payout provider and
// returns a ValidationError if invalid
func ValidateMobileMoneyProvider(provider string) *ValidationError {
	if !IsValidMobileMoneyProvider(provider) {
		return &ValidationError{
			Field:   "mobileMoneyProvider",
			Message: "invalid mobile money provider",
			Value:   provider,
		}
	}
	return nil
}

// ValidateTransactionType validates order transaction type and returns a
// ValidationError if invalid
func ValidateTransactionType(txType string) *ValidationError {
	if !IsValidTransactionType(txType) {
		return &ValidationError{
			Field:   "transactionType",
			Message: "invalid transaction type",
			Value:   txType,
		}
	}
	return nil
}
