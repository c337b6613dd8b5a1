package i18n

// translations maps notification key -> language -> format string.
// Supported languages: en (English), af (Afrikaans), zu (isiZulu).
var translations = map[string]map[string]string{

	// ride accepted (parent)
	"notification.ride_accepted.title": {
		"en": "Driver assigned",
		"af": "Bestuurder toegewys",
		"zu": "Umshayeli unikeziwe",
	},
	// %s = scheduled pickup time
	"notification.ride_accepted.body": {
		"en": "A driver accepted your ride for %s. Share the pickup code at pickup.",
		"af": "'n Bestuurder het jou rit vir %s aanvaar. Deel die oplaaikode by die oplaaipunt.",
		"zu": "Umshayeli wamukele uhambo lwakho lwango-%s. Yabelana ngekhodi lapho kulandwa khona.",
	},

	// ride started (parent)
	"notification.ride_started.title": {
		"en": "Ride started",
		"af": "Rit het begin",
		"zu": "Uhambo seluqalile",
	},
	"notification.ride_started.body": {
		"en": "Your child has been picked up and is on the way.",
		"af": "Jou kind is opgelaai en is op pad.",
		"zu": "Ingane yakho ilandiwe futhi isendleleni.",
	},

	// ride completed (parent)
	"notification.ride_completed.title": {
		"en": "Ride completed",
		"af": "Rit voltooi",
		"zu": "Uhambo luqediwe",
	},
	// %s = formatted fare
	"notification.ride_completed.body": {
		"en": "Your child has arrived. %s was paid from your wallet.",
		"af": "Jou kind het aangekom. %s is uit jou beursie betaal.",
		"zu": "Ingane yakho ifikile. U-%s ukhokhelwe esikhwameni sakho.",
	},

	// earnings (driver)
	"notification.ride_earning.title": {
		"en": "Payment received",
		"af": "Betaling ontvang",
		"zu": "Inkokhelo yamukelwe",
	},
	// %s = formatted fare
	"notification.ride_earning.body": {
		"en": "%s was added to your wallet.",
		"af": "%s is by jou beursie gevoeg.",
		"zu": "U-%s wengezwe esikhwameni sakho.",
	},

	// ride cancelled (other party)
	"notification.ride_cancelled.title": {
		"en": "Ride cancelled",
		"af": "Rit gekanselleer",
		"zu": "Uhambo lukhanseliwe",
	},
	// %s = who cancelled, %s = reason
	"notification.ride_cancelled.body": {
		"en": "The %s cancelled the ride. Reason: %s",
		"af": "Die %s het die rit gekanselleer. Rede: %s",
		"zu": "U-%s ukhansele uhambo. Isizathu: %s",
	},

	// pickup code regenerated (driver)
	"notification.otp_regenerated.title": {
		"en": "Pickup code changed",
		"af": "Oplaaikode verander",
		"zu": "Ikhodi yokulanda ishintshile",
	},
	"notification.otp_regenerated.body": {
		"en": "The parent generated a new pickup code. Ask for the new code at pickup.",
		"af": "Die ouer het 'n nuwe oplaaikode geskep. Vra vir die nuwe kode by die oplaaipunt.",
		"zu": "Umzali wenze ikhodi entsha. Cela ikhodi entsha lapho ulanda khona.",
	},

	// request expired (parent)
	"notification.request_expired.title": {
		"en": "Request expired",
		"af": "Versoek verval",
		"zu": "Isicelo siphelelwe yisikhathi",
	},
	// %s = scheduled pickup time
	"notification.request_expired.body": {
		"en": "No driver accepted your ride request for %s.",
		"af": "Geen bestuurder het jou ritversoek vir %s aanvaar nie.",
		"zu": "Awukho umshayeli owamukele isicelo sakho sohambo lwango-%s.",
	},
}
